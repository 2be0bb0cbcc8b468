package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/eugenenazirov/cfgbind/internal/binder"
	"github.com/eugenenazirov/cfgbind/internal/confignode"
	"github.com/eugenenazirov/cfgbind/internal/snapshot"
	"github.com/eugenenazirov/cfgbind/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxBodyBytes = 1 << 20

const (
	kindMissingRequiredScope = "missing_required_scope"
	kindMissingRequiredValue = "missing_required_value"
	kindTypeMismatch         = "type_mismatch"
)

// Reloader reloads the stored snapshot from its source.
type Reloader interface {
	Reload(ctx context.Context) (storage.Snapshot, error)
}

// Handler wires storage and reload dependencies into HTTP handlers.
type Handler struct {
	storage  storage.Storage
	reloader Reloader

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies. A nil
// reloader disables the reload endpoint.
func NewHandler(store storage.Storage, reloader Reloader, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:  store,
		reloader: reloader,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	snap, ok := h.currentSnapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newConfigResponse(snap, ""))
}

func (h *Handler) handleRenderConfig(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.currentSnapshot(w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, snapshot.Render(snap.Config, r.URL.Query().Get("indent")))
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeError(w, http.StatusServiceUnavailable, "Reload unavailable", "no reloadable source is configured")
		return
	}

	snap, err := h.reloader.Reload(r.Context())
	if err != nil {
		if kind := bindErrorKind(err); kind != "" {
			writeBindError(w, "Reload rejected", err, kind)
			return
		}
		writeError(w, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newConfigResponse(snap, "Configuration reloaded successfully"))
}

func (h *Handler) handleBind(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Invalid request", "request body too large")
		return
	}

	node, err := parseBindBody(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	cfg, err := snapshot.Construct(node)
	if err != nil {
		writeBindError(w, "Bind failed", err, bindErrorKind(err))
		return
	}

	writeJSON(w, http.StatusOK, bindResponse{
		Config:   cfg,
		Rendered: snapshot.Render(cfg, ""),
	})
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	_ = r
	entries := snapshot.Schema.Entries()
	fields := make([]schemaField, 0, len(entries))
	for _, e := range entries {
		field := schemaField{
			Path:     e.Path,
			Kind:     e.Kind.String(),
			Optional: e.Optional,
			Required: e.Required,
			Default:  e.Default,
		}
		if d, ok := e.Default.(time.Duration); ok {
			field.Default = d.String()
		}
		fields = append(fields, field)
	}
	writeJSON(w, http.StatusOK, schemaResponse{Fields: fields})
}

func (h *Handler) currentSnapshot(w http.ResponseWriter) (storage.Snapshot, bool) {
	snap, err := h.storage.Current()
	if err != nil {
		if errors.Is(err, storage.ErrNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, "Configuration not loaded", err.Error())
			return storage.Snapshot{}, false
		}
		writeInternalError(w, err)
		return storage.Snapshot{}, false
	}
	return snap, true
}

// parseBindBody reads JSON bodies into a map-backed node and everything else
// as YAML.
func parseBindBody(contentType string, body []byte) (confignode.Node, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		var tree map[string]any
		if err := json.Unmarshal(body, &tree); err != nil {
			return nil, errors.New("unable to parse JSON payload")
		}
		return confignode.FromMap(tree)
	}

	node, err := confignode.ParseYAML(body)
	if err != nil {
		return nil, errors.New("unable to parse YAML payload")
	}
	return node, nil
}

func bindErrorKind(err error) string {
	switch {
	case errors.Is(err, binder.ErrMissingRequiredScope):
		return kindMissingRequiredScope
	case errors.Is(err, binder.ErrMissingRequiredValue):
		return kindMissingRequiredValue
	case errors.Is(err, confignode.ErrTypeMismatch):
		return kindTypeMismatch
	}
	return ""
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type configResponse struct {
	Config     snapshot.RootConfig `json:"config"`
	Source     string              `json:"source"`
	LoadedAt   time.Time           `json:"loadedAt"`
	Generation uint64              `json:"generation"`
	Message    string              `json:"message,omitempty"`
}

func newConfigResponse(snap storage.Snapshot, message string) configResponse {
	return configResponse{
		Config:     snap.Config,
		Source:     snap.Source,
		LoadedAt:   snap.LoadedAt,
		Generation: snap.Generation,
		Message:    message,
	}
}

type bindResponse struct {
	Config   snapshot.RootConfig `json:"config"`
	Rendered string              `json:"rendered"`
}

type schemaResponse struct {
	Fields []schemaField `json:"fields"`
}

type schemaField struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeBindError(w http.ResponseWriter, message string, err error, kind string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error:   message,
		Details: err.Error(),
		Kind:    kind,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
