package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/raysh454/vigil/internal/catalog"
	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/monitor"
	"github.com/raysh454/vigil/internal/storage"
	"github.com/raysh454/vigil/internal/whois"
)

// Server is the HTTP + WebSocket API surface for vigil.
type Server struct {
	cfg      Config
	orch     *monitor.Orchestrator
	store    interfaces.Store
	whois    *whois.Client
	catalog  *catalog.Catalog
	router   chi.Router
	upgrader websocket.Upgrader
	logger   interfaces.Logger
}

// NewServer wires the API around an orchestrator and its store. whoisClient
// and cat may be nil; the corresponding routes then answer 503.
func NewServer(cfg Config, orch *monitor.Orchestrator, store interfaces.Store, whoisClient *whois.Client, cat *catalog.Catalog, logger interfaces.Logger) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		cfg:     cfg,
		orch:    orch,
		store:   store,
		whois:   whoisClient,
		catalog: cat,
		router:  chi.NewRouter(),
		logger:  logger.With(interfaces.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/groups", s.optionsHandler("GET, POST"))
	r.Options("/groups/{groupID}", s.optionsHandler("GET"))
	r.Options("/groups/{groupID}/domains", s.optionsHandler("GET"))
	r.Options("/domains/{domainID}", s.optionsHandler("GET"))
	r.Options("/domains/{domainID}/dump", s.optionsHandler("POST"))
	r.Options("/domains/{domainID}/snapshots", s.optionsHandler("GET"))
	r.Options("/snapshots/{snapshotID}", s.optionsHandler("GET"))
	r.Options("/snapshots/{snapshotID}/screenshot", s.optionsHandler("GET"))
	r.Options("/reset", s.optionsHandler("POST"))
	r.Options("/whois/{domain}", s.optionsHandler("GET"))
	r.Options("/nrd/search", s.optionsHandler("GET"))
	r.Options("/nrd/ingest", s.optionsHandler("POST"))
	r.Options("/health", s.optionsHandler("GET"))

	// Groups
	r.Post("/groups", s.handleCreateGroup)
	r.Get("/groups", s.handleListGroups)
	r.Get("/groups/{groupID}", s.handleGetGroup)
	r.Get("/groups/{groupID}/domains", s.handleListGroupDomains)

	// Domains
	r.Get("/domains/{domainID}", s.handleGetDomain)
	r.Post("/domains/{domainID}/dump", s.handleForceDump)
	r.Get("/domains/{domainID}/snapshots", s.handleListSnapshots)

	// Snapshots
	r.Get("/snapshots/{snapshotID}", s.handleGetSnapshot)
	r.Get("/snapshots/{snapshotID}/screenshot", s.handleGetScreenshot)

	// Environment
	r.Post("/reset", s.handleReset)
	r.Get("/health", s.handleHealth)

	// Lookups
	r.Get("/whois/{domain}", s.handleWhois)
	r.Get("/nrd/search", s.handleNRDSearch)
	r.Post("/nrd/ingest", s.handleNRDIngest)

	// WebSocket event stream
	r.Get("/ws/events", s.handleEventsWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []interfaces.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, interfaces.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, interfaces.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, monitor.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrGroupNotFound),
		errors.Is(err, storage.ErrDomainNotFound),
		errors.Is(err, storage.ErrSnapshotNotFound),
		errors.Is(err, catalog.ErrNoFeedFiles):
		return http.StatusNotFound
	case errors.Is(err, monitor.ErrDumpInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// apiError logs the failure and writes the mapped error response.
func (s *Server) apiError(w http.ResponseWriter, logMsg string, err error) {
	s.logger.Warn(logMsg, interfaces.Field{Key: "error", Value: err.Error()})
	writeError(w, statusForError(err), err.Error())
}

// --- HTTP handlers ---

// Groups

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var body CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding create group body", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	group, err := s.orch.CreateGroup(r.Context(), body.Name, body.Domains)
	if err != nil {
		s.apiError(w, "creating group", err)
		return
	}
	s.logger.Info("created group",
		interfaces.Field{Key: "group_id", Value: group.ID},
		interfaces.Field{Key: "domains", Value: len(group.DomainIDs)})
	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.orch.GetGroups(r.Context())
	if err != nil {
		s.apiError(w, "listing groups", err)
		return
	}
	s.logger.Info("listed groups", interfaces.Field{Key: "count", Value: len(groups)})
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	group, err := s.orch.GetGroup(r.Context(), groupID)
	if err != nil {
		s.apiError(w, "getting group", err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleListGroupDomains(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	domains, err := s.orch.GetGroupDomains(r.Context(), groupID)
	if err != nil {
		s.apiError(w, "listing group domains", err)
		return
	}
	s.logger.Info("listed group domains",
		interfaces.Field{Key: "group_id", Value: groupID},
		interfaces.Field{Key: "count", Value: len(domains)})
	writeJSON(w, http.StatusOK, domains)
}

// Domains

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	domainID := chi.URLParam(r, "domainID")

	domain, err := s.orch.GetDomain(r.Context(), domainID)
	if err != nil {
		s.apiError(w, "getting domain", err)
		return
	}
	writeJSON(w, http.StatusOK, domain)
}

func (s *Server) handleForceDump(w http.ResponseWriter, r *http.Request) {
	domainID := chi.URLParam(r, "domainID")

	snap, err := s.orch.TriggerForceDump(r.Context(), domainID)
	if err != nil {
		s.apiError(w, "triggering force dump", err)
		return
	}
	s.logger.Info("force dump finished",
		interfaces.Field{Key: "domain_id", Value: domainID},
		interfaces.Field{Key: "success", Value: snap.Success})

	status := http.StatusCreated
	if !snap.Success {
		// Nothing was persisted for a failed dump attempt.
		status = http.StatusOK
	}
	writeJSON(w, status, snap)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	domainID := chi.URLParam(r, "domainID")

	snaps, err := s.orch.GetDomainSnapshots(r.Context(), domainID)
	if err != nil {
		s.apiError(w, "listing snapshots", err)
		return
	}
	s.logger.Info("listed snapshots",
		interfaces.Field{Key: "domain_id", Value: domainID},
		interfaces.Field{Key: "count", Value: len(snaps)})
	writeJSON(w, http.StatusOK, snaps)
}

// Snapshots

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")

	details, err := s.orch.GetSnapshotDetails(r.Context(), snapshotID)
	if err != nil {
		s.apiError(w, "getting snapshot details", err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleGetScreenshot(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")

	snap, err := s.store.GetSnapshot(r.Context(), snapshotID)
	if err != nil {
		s.apiError(w, "getting snapshot for screenshot", err)
		return
	}
	if snap.ScreenshotPath == "" {
		writeError(w, http.StatusNotFound, "snapshot has no screenshot")
		return
	}

	abs := s.store.AbsPath(snap.ScreenshotPath)
	if _, err := os.Stat(abs); err != nil {
		s.logger.Warn("screenshot file missing",
			interfaces.Field{Key: "snapshot_id", Value: snapshotID},
			interfaces.Field{Key: "path", Value: snap.ScreenshotPath})
		writeError(w, http.StatusNotFound, "screenshot file missing")
		return
	}
	http.ServeFile(w, r, abs)
}

// Environment

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orch.ResetEnvironment(r.Context())
	if err != nil {
		s.apiError(w, "resetting environment", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Lookups

func (s *Server) handleWhois(w http.ResponseWriter, r *http.Request) {
	if s.whois == nil {
		writeError(w, http.StatusServiceUnavailable, "whois lookups are not configured")
		return
	}
	domain := chi.URLParam(r, "domain")

	rec, err := s.whois.Lookup(r.Context(), domain)
	if err != nil {
		s.apiError(w, "whois lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleNRDSearch(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "nrd catalog is not configured")
		return
	}

	brand := r.URL.Query().Get("brand")
	if brand == "" {
		s.logger.Warn("nrd search: missing brand query parameter")
		writeError(w, http.StatusBadRequest, "missing brand query parameter")
		return
	}

	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	results, err := s.catalog.Search(r.Context(), brand, limit)
	if err != nil {
		s.apiError(w, "searching nrd catalog", err)
		return
	}
	s.logger.Info("nrd search",
		interfaces.Field{Key: "brand", Value: brand},
		interfaces.Field{Key: "count", Value: len(results)})
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleNRDIngest(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "nrd catalog is not configured")
		return
	}

	// An empty body means "ingest the latest feed"; anything else must
	// decode cleanly.
	var body IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("decoding nrd ingest body", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var (
		stats *catalog.IngestStats
		err   error
	)
	if body.Path != "" {
		stats, err = s.catalog.IngestFile(r.Context(), body.Path)
	} else {
		stats, err = s.catalog.IngestLatest(r.Context())
	}
	if err != nil {
		s.apiError(w, "ingesting nrd feed", err)
		return
	}
	s.logger.Info("ingested nrd feed",
		interfaces.Field{Key: "source", Value: stats.SourceFile},
		interfaces.Field{Key: "inserted", Value: stats.Inserted})
	writeJSON(w, http.StatusOK, stats)
}

// WebSockets

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	id, events := s.orch.Events().Subscribe()
	defer s.orch.Events().Unsubscribe(id)

	// An optional ?domain= narrows the stream to one domain's events.
	// Events without a domain id (group created, reset) always pass.
	domainFilter := r.URL.Query().Get("domain")

	s.logger.Info("event stream subscriber connected",
		interfaces.Field{Key: "subscriber_id", Value: id},
		interfaces.Field{Key: "domain_filter", Value: domainFilter})

	// The read pump only detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if domainFilter != "" && ev.DomainID != "" && ev.DomainID != domainFilter {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Info("event stream subscriber disconnected", interfaces.Field{Key: "subscriber_id", Value: id})
				return
			}
		case <-done:
			s.logger.Info("event stream subscriber disconnected", interfaces.Field{Key: "subscriber_id", Value: id})
			return
		}
	}
}
