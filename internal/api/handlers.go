// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"unhunk/internal/errors"
	"unhunk/internal/logging"
	"unhunk/internal/validation"
	"unhunk/internal/vcs"
	"unhunk/internal/workspace"
	"unhunk/shared/types"

	"go.uber.org/zap"
)

// Handler serves the repository operations over HTTP. Every request names
// its repository; nothing is kept open between requests except journals.
type Handler struct {
	opts   workspace.Options
	logger *logging.Logger
}

// NewHandler serves requests with workspaces opened from opts. Set
// opts.Journals to enable history and undo.
func NewHandler(opts workspace.Options, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	opts.Logger = logger.Logger
	return &Handler{opts: opts, logger: logger}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("GET /api/diff", h.Diff)
	mux.HandleFunc("GET /api/history", h.History)
	mux.HandleFunc("POST /api/revert/hunk", h.RevertHunk)
	mux.HandleFunc("POST /api/revert/lines", h.RevertLines)
	mux.HandleFunc("POST /api/revert/file", h.RevertFile)
	mux.HandleFunc("POST /api/stage", h.Stage)
	mux.HandleFunc("POST /api/unstage", h.Unstage)
	mux.HandleFunc("POST /api/undo", h.Undo)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ws, err := h.open(r, r.URL.Query().Get("repo"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := ws.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, report)
}

// Diff serves the working-tree diff of a file, or the staged diff when
// staged=true.
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := vcs.WorkdirVsIndex
	if raw := q.Get("staged"); raw != "" {
		staged, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, errors.ValidationError("invalid staged flag", map[string]string{"staged": raw}))
			return
		}
		if staged {
			mode = vcs.IndexVsHead
		}
	}
	if q.Get("path") == "" {
		h.writeError(w, r, errors.ValidationError("invalid request", map[string]string{"path": "required"}))
		return
	}

	ws, err := h.open(r, q.Get("repo"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := ws.FileDiff(r.Context(), q.Get("path"), mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, d)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ws, err := h.open(r, r.URL.Query().Get("repo"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := ws.History(r.URL.Query().Get("path"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, entries)
}

func (h *Handler) RevertHunk(w http.ResponseWriter, r *http.Request) {
	var req types.HunkRequest
	if err := validation.DecodeRequest(r, validation.HunkSchema, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ws, err := h.open(r, req.Repo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := ws.RevertHunk(r.Context(), req.Path, *req.Index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) RevertLines(w http.ResponseWriter, r *http.Request) {
	var req types.LinesRequest
	if err := validation.DecodeRequest(r, validation.LinesSchema, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ws, err := h.open(r, req.Repo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := ws.RevertLines(r.Context(), req.Path, req.Start, req.End)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) RevertFile(w http.ResponseWriter, r *http.Request) {
	var req types.FileRequest
	if err := validation.DecodeRequest(r, validation.FileSchema, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ws, err := h.open(r, req.Repo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := ws.RevertFile(r.Context(), req.Path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) Stage(w http.ResponseWriter, r *http.Request) {
	h.index(w, r, (*workspace.Workspace).Stage)
}

func (h *Handler) Unstage(w http.ResponseWriter, r *http.Request) {
	h.index(w, r, (*workspace.Workspace).Unstage)
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	var req types.UndoRequest
	if err := validation.DecodeRequest(r, validation.UndoSchema, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ws, err := h.open(r, req.Repo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := ws.Undo(r.Context(), req.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request, op func(*workspace.Workspace, context.Context, string) error) {
	var req types.FileRequest
	if err := validation.DecodeRequest(r, validation.FileSchema, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ws, err := h.open(r, req.Repo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := op(ws, r.Context(), req.Path); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) open(r *http.Request, repo string) (*workspace.Workspace, error) {
	if repo == "" {
		return nil, errors.ValidationError("invalid request", map[string]string{"repo": "required"})
	}
	return workspace.Open(r.Context(), repo, h.opts)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithRequestID(r.Context()).Warn("writing response", zap.Error(err))
	}
}

// writeError reports err as a JSON errors.Error. Errors outside the
// taxonomy become INTERNAL.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		e = errors.Internal("internal error", err)
	}
	status := errors.StatusCode(e)
	log := h.logger.WithRequestID(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Error(err))
	}
	h.writeJSON(w, r, status, e)
}
