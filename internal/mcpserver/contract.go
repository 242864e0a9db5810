package mcpserver

// ManifestFormatContract describes the canonical project manifest format
// that LLM consumers should follow when creating manifests.
const ManifestFormatContract = `# Foundry Manifest Format Contract

Every project manifest stored in the hub MUST follow this structure.

## Structure

` + "```" + `json
{
  "id": "saas-alpha",
  "name": "Alpha CRM",
  "type": "saas",
  "status": "production",
  "revenue": "$12,500",
  "users": 840,
  "tasks": [
    {"id": "t-1", "title": "Ship billing", "status": "done", "priority": "high", "assignedAgent": "atlas"},
    {"id": "t-2", "title": "Churn dashboard", "status": "in-progress", "priority": "medium"}
  ],
  "description": "B2B CRM for small agencies.",
  "team": ["atlas", "nova"],
  "liveUrl": "https://alpha.example.com",
  "startDate": "2025-03-01"
}
` + "```" + `

## Rules

1. **Files are flat JSON documents** named ` + "`" + `<something>.json` + "`" + ` directly in the
   hub directory. Dot-prefixed files and subdirectories are ignored.
2. **` + "`" + `name` + "`" + `, ` + "`" + `type` + "`" + ` and ` + "`" + `status` + "`" + ` are required.** A manifest missing any of
   them is rejected and reported as a diagnostic, never silently dropped.
3. **` + "`" + `status` + "`" + ` values** (case-insensitive): planning, development, production,
   paused, archived.
4. **` + "`" + `id` + "`" + ` is optional** — when absent the file name stem is used. Ids must be
   unique across the hub; on a collision the first file in scan order wins.
5. **` + "`" + `revenue` + "`" + `** accepts a number (dollars) or a string like ` + "`" + `"$12,500"` + "`" + `,
   ` + "`" + `"21K"` + "`" + ` or ` + "`" + `"1.2M"` + "`" + `. Absent means zero. A malformed or negative value
   degrades to zero with a warning diagnostic.
6. **` + "`" + `users` + "`" + `** is a non-negative whole number.
7. **Task ` + "`" + `title` + "`" + ` is required**; entries without one are dropped with a
   warning. Task ` + "`" + `status` + "`" + ` is one of pending, in-progress, done, blocked
   (default pending); ` + "`" + `priority` + "`" + ` is one of low, medium, high, critical
   (default medium).
8. **Legacy layouts are accepted:** ` + "`" + `projectName` + "`" + `/` + "`" + `projectType` + "`" + ` for
   ` + "`" + `name` + "`" + `/` + "`" + `type` + "`" + `, a nested ` + "`" + `metrics` + "`" + ` object holding ` + "`" + `revenue` + "`" + `,
   ` + "`" + `users` + "`" + ` and ` + "`" + `startDate` + "`" + `, ` + "`" + `assignedTo` + "`" + ` for ` + "`" + `assignedAgent` + "`" + `, and
   ` + "`" + `tasks` + "`" + ` as an ` + "`" + `{"active": [...], "completed": [...]}` + "`" + ` pair of lists.
   Prefer the canonical layout for new manifests.
9. **Encoding** is UTF-8 with a trailing newline.

## Example (legacy layout, still valid)

` + "```" + `json
{
  "projectName": "Night Owl",
  "projectType": "content",
  "status": "development",
  "metrics": {"revenue": "8.5K", "users": 1200, "startDate": "2024-11-10"},
  "tasks": {
    "active": [{"title": "Edit episode 12", "assignedTo": "echo"}],
    "completed": [{"title": "Publish episode 11"}]
  }
}
` + "```" + `
`
