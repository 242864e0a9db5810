package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/foundryos/foundry/internal"
	"github.com/foundryos/foundry/internal/archive"
	"github.com/foundryos/foundry/internal/hub"
	"github.com/foundryos/foundry/internal/manifest"
	"github.com/foundryos/foundry/internal/mcpserver"
	"github.com/foundryos/foundry/internal/pattern"
	"github.com/foundryos/foundry/internal/storage"
	"github.com/foundryos/foundry/internal/store"
	pkgconfig "github.com/foundryos/foundry/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefaults(cmd.String("config"), cfg, cmd.IsSet("config")); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// buildEngine assembles the hub service for one-shot commands. Logs go to
// stderr so stdout stays clean for command output (and for MCP stdio).
func buildEngine(cfg *internal.Config) (*hub.Service, func(), error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	provider, err := storage.NewFS(cfg.Hub.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	arc, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init archive: %w", err)
	}

	st := store.New(provider, &manifest.Validator{AllowedTypes: cfg.Hub.AllowedTypes}, logger)
	det := pattern.New(pattern.Config{
		Threshold: cfg.Learning.Threshold,
		Metrics:   cfg.Learning.TrackedMetrics(),
	})
	svc := hub.NewService(provider, st, det, arc, logger)
	return svc, func() { _ = arc.Close() }, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closer, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closer()

	report, err := svc.Status(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(report)
	}
	renderStatus(report)

	if cmd.Bool("review") && len(report.PendingPatterns) > 0 {
		return reviewPatterns(ctx, svc, report.PendingPatterns)
	}
	return nil
}

func renderStatus(report *hub.StatusReport) {
	snap := report.Snapshot
	fmt.Printf("Projects: %d total, %d active\n", snap.TotalProjects, snap.ActiveProjects)
	fmt.Printf("Revenue: %s/mo   Users: %d   Open tasks: %d of %d\n",
		snap.TotalRevenue, snap.TotalUsers, snap.OpenTasks, snap.TotalTasks)
	if report.RejectedManifests > 0 || report.Warnings > 0 {
		fmt.Printf("Manifest faults: %d rejected, %d warnings (run \"foundry check\" for details)\n",
			report.RejectedManifests, report.Warnings)
	}

	if len(snap.Types) > 0 {
		names := make([]string, 0, len(snap.Types))
		for name := range snap.Types {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Type", "Projects", "Revenue", "Users", "Tasks", "Completion", "Rev/User"})
		for _, name := range names {
			tm := snap.Types[name]
			tw.AppendRow(table.Row{
				name, tm.Projects, tm.Revenue, tm.Users,
				fmt.Sprintf("%d/%d", tm.TasksDone, tm.TasksTotal),
				fmt.Sprintf("%.0f%%", tm.CompletionRate*100),
				fmt.Sprintf("$%.2f", tm.RevenuePerUser),
			})
		}
		tw.Render()
	}

	if len(snap.AgentWorkload) > 0 {
		agents := make([]string, 0, len(snap.AgentWorkload))
		for agent := range snap.AgentWorkload {
			agents = append(agents, agent)
		}
		sort.Strings(agents)

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Agent", "Open Tasks"})
		for _, agent := range agents {
			tw.AppendRow(table.Row{agent, snap.AgentWorkload[agent]})
		}
		tw.Render()
	}

	if report.ConfirmedPatterns > 0 {
		fmt.Printf("Confirmed patterns: %d (run \"foundry patterns\")\n", report.ConfirmedPatterns)
	}
	for _, p := range report.PendingPatterns {
		fmt.Printf("Pattern detected [%s]: %s\n", p.ProjectType, p.Description)
	}
	if len(report.PendingPatterns) > 0 {
		fmt.Println("Run \"foundry status --review\" to accept or reject.")
	}
}

func reviewPatterns(ctx context.Context, svc *hub.Service, pending []pattern.Pending) error {
	reader := bufio.NewReader(os.Stdin)
	for _, p := range pending {
		fmt.Printf("\n[%s] %s\n", p.ProjectType, p.Description)
		fmt.Printf("  %s: %.2f -> %.2f (+%.0f%%)\n", p.Metric, p.Before, p.After, p.Improvement*100)
		fmt.Print("Accept? [y/N] ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		accept := strings.EqualFold(strings.TrimSpace(line), "y")
		if _, err := svc.ResolvePattern(ctx, p.ProjectType, accept); err != nil {
			return fmt.Errorf("resolve pattern: %w", err)
		}
		if accept {
			fmt.Println("Pattern recorded.")
		} else {
			fmt.Println("Pattern discarded.")
		}
	}
	return nil
}

func runProjects(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closer, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closer()

	projects, err := svc.Projects(ctx, cmd.String("status"), cmd.String("type"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(projects)
	}
	if len(projects) == 0 {
		fmt.Println("no projects")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Type", "Status", "Revenue", "Users", "Tasks"})
	for _, p := range projects {
		done := 0
		for _, task := range p.Tasks {
			if task.Status == manifest.TaskDone {
				done++
			}
		}
		tw.AppendRow(table.Row{
			p.ID, p.Name, p.Type, p.Status, p.Revenue, p.Users,
			fmt.Sprintf("%d/%d", done, len(p.Tasks)),
		})
	}
	tw.Render()
	return nil
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closer, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closer()

	diags, err := svc.Diagnostics(ctx)
	if err != nil {
		return err
	}
	if len(diags) == 0 {
		fmt.Println("all manifests valid")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"File", "Severity", "Kind", "Detail"})
	rejected := 0
	for _, d := range diags {
		if d.Severity == manifest.SeverityError {
			rejected++
		}
		tw.AppendRow(table.Row{d.File, d.Severity, d.Kind, d.Detail})
	}
	tw.Render()

	if rejected > 0 {
		return cli.Exit(fmt.Sprintf("%d manifest(s) rejected", rejected), 1)
	}
	return nil
}

func runPatterns(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closer, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closer()

	patterns, err := svc.Patterns(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(patterns)
	}
	if len(patterns) == 0 {
		fmt.Println("no confirmed patterns")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Type", "Metric", "Before", "After", "Gain", "Confirmed"})
	for _, p := range patterns {
		tw.AppendRow(table.Row{
			p.ProjectType, p.Metric,
			fmt.Sprintf("%.2f", p.Before),
			fmt.Sprintf("%.2f", p.After),
			fmt.Sprintf("+%.0f%%", p.Improvement*100),
			p.ConfirmedAt.Format("2006-01-02"),
		})
	}
	tw.Render()
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closer, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closer()

	return mcpserver.New(svc).ServeStdio()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsonFlag returns a fresh --json flag; cli v3 flag values are stateful, so
// commands must not share instances.
func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Emit raw JSON instead of tables",
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "foundry",
		Usage:  "Manifest-driven portfolio engine with metrics aggregation and pattern learning",
		Action: runServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and manifest watcher",
				Action: runServe,
			},
			{
				Name:   "status",
				Usage:  "Print the aggregate empire status",
				Action: runStatus,
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.BoolFlag{
						Name:  "review",
						Usage: "Interactively accept or reject pending patterns",
					},
				},
			},
			{
				Name:   "projects",
				Usage:  "List projects",
				Action: runProjects,
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (planning, development, production, paused, archived)",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Filter by project type",
					},
				},
			},
			{
				Name:   "check",
				Usage:  "Validate all manifests; exits non-zero when any is rejected",
				Action: runCheck,
			},
			{
				Name:   "patterns",
				Usage:  "List confirmed patterns",
				Action: runPatterns,
				Flags:  []cli.Flag{jsonFlag()},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio for LLM integration",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
