package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/foundryos/foundry/internal/apperr"
	"github.com/foundryos/foundry/internal/hub"
	"github.com/go-chi/chi/v5"
)

// Handler holds API route handlers.
type Handler struct {
	svc *hub.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *hub.Service) *Handler {
	return &Handler{svc: svc}
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects with optional status and type filters
//	@Tags			projects
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(planning, development, production, paused, archived)
//	@Param			type	query		string	false	"Filter by project type"
//	@Success		200		{object}	ProjectListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	projectType := q.Get("type")

	projects, err := h.svc.Projects(r.Context(), status, projectType)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid status filter"))
			return
		}
		slog.Error("list projects failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProject handles GET /api/projects/{id}.
//
//	@Summary		Get a single project by manifest id
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	Project
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	project, err := h.svc.Project(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get project failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// CreateManifest handles POST /api/manifests.
//
//	@Summary		Submit a new project manifest
//	@Tags			manifests
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateManifestRequest	true	"Manifest to write"
//	@Success		201		{object}	Project
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	ManifestRejectedResponse
//	@Security		BearerAuth
//	@Router			/manifests [post]
func (h *Handler) CreateManifest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateManifestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Filename == "" || req.Manifest == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("filename and manifest are required"))
		return
	}
	project, err := h.svc.CreateManifest(r.Context(), req.Filename, req.Manifest)
	if err != nil {
		var rejected *hub.ManifestRejectedError
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("manifest already exists"))
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid manifest filename"))
		case errors.As(err, &rejected):
			writeJSON(w, http.StatusUnprocessableEntity, ManifestRejectedResponse{
				Error:       "manifest rejected",
				File:        rejected.File,
				Diagnostics: rejected.Diagnostics,
			})
		default:
			slog.Error("create manifest failed", slog.String("filename", req.Filename), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// Status handles GET /api/status.
//
//	@Summary		Aggregate empire status with metrics and pending patterns
//	@Tags			empire
//	@Produce		json
//	@Success		200	{object}	StatusReport
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Status(r.Context())
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Reload handles POST /api/reload.
//
//	@Summary		Rescan the hub directory and rebuild the snapshot
//	@Tags			empire
//	@Produce		json
//	@Success		200	{object}	ReloadResult
//	@Security		BearerAuth
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Reload(r.Context())
	if err != nil {
		slog.Error("reload failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Diagnostics handles GET /api/diagnostics.
//
//	@Summary		List diagnostics from the last manifest scan
//	@Tags			empire
//	@Produce		json
//	@Success		200	{object}	DiagnosticListResponse
//	@Security		BearerAuth
//	@Router			/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := h.svc.Diagnostics(r.Context())
	if err != nil {
		slog.Error("diagnostics failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"diagnostics": diags,
		"total":       len(diags),
	})
}

// ListSnapshots handles GET /api/snapshots.
//
//	@Summary		List archived metric snapshots, newest first
//	@Tags			empire
//	@Produce		json
//	@Param			limit	query		int	false	"Max snapshots to return"
//	@Success		200		{object}	SnapshotListResponse
//	@Security		BearerAuth
//	@Router			/snapshots [get]
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snaps, err := h.svc.Snapshots(r.Context(), limit)
	if err != nil {
		slog.Error("list snapshots failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snaps,
		"total":     len(snaps),
	})
}

// ListPatterns handles GET /api/patterns.
//
//	@Summary		List confirmed patterns
//	@Tags			patterns
//	@Produce		json
//	@Success		200	{object}	PatternListResponse
//	@Security		BearerAuth
//	@Router			/patterns [get]
func (h *Handler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.svc.Patterns(r.Context())
	if err != nil {
		slog.Error("list patterns failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": patterns,
		"total":    len(patterns),
	})
}

// ListPendingPatterns handles GET /api/patterns/pending.
//
//	@Summary		List detected patterns awaiting review
//	@Tags			patterns
//	@Produce		json
//	@Success		200	{object}	PendingPatternListResponse
//	@Security		BearerAuth
//	@Router			/patterns/pending [get]
func (h *Handler) ListPendingPatterns(w http.ResponseWriter, r *http.Request) {
	pending, err := h.svc.PendingPatterns(r.Context())
	if err != nil {
		slog.Error("list pending patterns failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"total":   len(pending),
	})
}

// ResolvePattern handles POST /api/patterns/pending/{type}.
//
//	@Summary		Accept or reject the pending pattern for a project type
//	@Tags			patterns
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string					true	"Project type"
//	@Param			body	body		ResolvePatternRequest	true	"Review decision"
//	@Success		200		{object}	Pattern
//	@Success		204		"Pattern rejected"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/patterns/pending/{type} [post]
func (h *Handler) ResolvePattern(w http.ResponseWriter, r *http.Request) {
	projectType := chi.URLParam(r, "type")
	if projectType == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("type is required"))
		return
	}
	var req ResolvePatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	confirmed, err := h.svc.ResolvePattern(r.Context(), projectType, req.Accept)
	if err != nil {
		if errors.Is(err, apperr.ErrNoPending) {
			writeJSON(w, http.StatusNotFound, errorBody("no pending pattern for type"))
			return
		}
		slog.Error("resolve pattern failed", slog.String("type", projectType), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if confirmed == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, confirmed)
}
