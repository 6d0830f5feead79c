package forecasthttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"venue-pulse/internal/audit"
	"venue-pulse/internal/auth"
	"venue-pulse/internal/forecast/application"
	forecast "venue-pulse/internal/forecast/domain"
	"venue-pulse/internal/forecast/interfaces/export"
)

const (
	timeLayout         = time.RFC3339
	maxConfigBodyBytes = 1 << 20
)

// SnapshotService is the application surface the handlers need.
type SnapshotService interface {
	Build(ctx context.Context, mode forecast.SnapshotMode, at time.Time) (forecast.LiveSnapshot, error)
	Config(ctx context.Context) (application.VenueConfig, error)
	UpdateConfig(ctx context.Context, cfg application.VenueConfig) (application.VenueConfig, error)
	RealtimeReady() bool
}

// Handler serves the snapshot, export and config endpoints.
type Handler struct {
	service     SnapshotService
	defaultMode forecast.SnapshotMode
	logger      *log.Logger
	audit       audit.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAuditLogger records accepted config writes.
func WithAuditLogger(logger audit.Logger) HandlerOption {
	return func(h *Handler) {
		h.audit = logger
	}
}

// NewHandler constructs a Handler. Realtime as default mode falls back to
// sample when realtime sources are not wired.
func NewHandler(service SnapshotService, defaultMode forecast.SnapshotMode, logger *log.Logger, opts ...HandlerOption) (*Handler, error) {
	if service == nil {
		return nil, errors.New("forecast http: nil snapshot service")
	}
	if defaultMode == "" || (defaultMode == forecast.ModeRealtime && !service.RealtimeReady()) {
		defaultMode = forecast.ModeSample
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	h := &Handler{service: service, defaultMode: defaultMode, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/snapshot", h.snapshot).Methods(http.MethodGet)
	api.HandleFunc("/snapshot/export.{format:xlsx|pdf}", h.exportSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/config", h.getConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", h.putConfig).Methods(http.MethodPut)
}

// NewRouter builds a router with every forecast route registered.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"defaultMode":   h.defaultMode,
		"realtimeReady": h.service.RealtimeReady(),
	})
}

// snapshot handles GET /api/v1/snapshot?mode=sample|realtime&at=RFC3339.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.buildFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// exportSnapshot handles GET /api/v1/snapshot/export.{xlsx|pdf}.
func (h *Handler) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	snap, ok := h.buildFromQuery(w, r)
	if !ok {
		return
	}
	data, contentType, err := export.Render(format, snap)
	if err != nil {
		h.logger.Printf("snapshot export failed: format=%s id=%s err=%v", format, snap.SnapshotID, err)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+export.Filename(snap, format)+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) buildFromQuery(w http.ResponseWriter, r *http.Request) (forecast.LiveSnapshot, bool) {
	mode, err := application.ParseMode(r.URL.Query().Get("mode"), h.defaultMode)
	if err != nil {
		http.Error(w, "mode must be sample or realtime", http.StatusBadRequest)
		return forecast.LiveSnapshot{}, false
	}
	at, err := parseOptionalTime(r, "at")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return forecast.LiveSnapshot{}, false
	}
	snap, err := h.service.Build(r.Context(), mode, at)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUnknownMode):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, application.ErrRealtimeUnavailable):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.logger.Printf("snapshot build failed: mode=%s err=%v", mode, err)
			http.Error(w, "snapshot error", http.StatusInternalServerError)
		}
		return forecast.LiveSnapshot{}, false
	}
	return snap, true
}

// getConfig handles GET /api/v1/config.
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config(r.Context())
	if err != nil {
		h.logger.Printf("config load failed: err=%v", err)
		http.Error(w, "config error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// putConfig handles PUT /api/v1/config with a full JSON venue config.
func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg application.VenueConfig
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		http.Error(w, "invalid config body", http.StatusBadRequest)
		return
	}
	if _, err := application.NormalizeVenueConfig(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	saved, err := h.service.UpdateConfig(r.Context(), cfg)
	if err != nil {
		h.logger.Printf("config save failed: err=%v", err)
		http.Error(w, "config save error", http.StatusInternalServerError)
		return
	}
	h.auditConfigUpdate(r, saved)
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) auditConfigUpdate(r *http.Request, cfg application.VenueConfig) {
	if h.audit == nil {
		return
	}
	metadata, err := json.Marshal(cfg)
	if err != nil {
		h.logger.Printf("config audit encode failed: err=%v", err)
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	entry := audit.Entry{
		LocationID: cfg.LocationID,
		Actor:      identity.Subject,
		Scope:      identity.Scope,
		Action:     audit.ActionConfigUpdate,
		Metadata:   metadata,
		IP:         clientIP(r),
		UserAgent:  r.UserAgent(),
	}
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Printf("config audit failed: location=%s err=%v", cfg.LocationID, err)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseOptionalTime(r *http.Request, key string) (time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
