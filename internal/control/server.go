package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/recovery"
)

// Server exposes the node's HTTP surface: the translate endpoints, health
// and metrics, and the operator controls for sync and recovery.
type Server struct {
	node   *Node
	server *http.Server
}

func NewServer(node *Node, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		node: node,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/translate", s.handleTranslate)
	mux.HandleFunc("/translate/audio", s.handleTranslateAudio)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/recovery/trigger", s.handleRecoveryTrigger)
	mux.HandleFunc("/recovery/configure", s.handleRecoveryConfigure)
	mux.HandleFunc("/queue/dead", s.handleDeadLetters)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type translateRequest struct {
	domain.TranslationRequest
	Priority string `json:"priority"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	s.translate(w, r, s.node.translator.Translate)
}

func (s *Server) handleTranslateAudio(w http.ResponseWriter, r *http.Request) {
	s.translate(w, r, s.node.translator.TranslateAudio)
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, domain.TranslationRequest, domain.Priority) (domain.Result, error)) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	priority, ok := parsePriority(req.Priority)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown priority %q", req.Priority))
		return
	}

	result, err := fn(r.Context(), req.TranslationRequest, priority)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.node.health(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Offline is degraded, not down: the node still serves from cache.
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.Status,
		"version": h.Version,
		"online":  h.Link.Online,
		"queue":   h.Queue,
	})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	h, err := s.node.health(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleSync forces a probe and, if the link is up, an immediate drain pass.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	state := s.node.mon.CheckNow(ctx)
	if state.Online {
		s.node.reconciler.DrainNow()
	}

	counts, err := s.node.queue.Counts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"online": state.Online,
		"queue":  counts,
	})
}

type recoveryTriggerRequest struct {
	Cause  string `json:"cause"`
	Reason string `json:"reason"`
}

func (s *Server) handleRecoveryTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req recoveryTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.node.engine.Trigger(r.Context(), domain.Cause(req.Cause), req.Reason)
	switch err {
	case nil:
		writeJSON(w, http.StatusOK, rec)
	case recovery.ErrCoolingDown, recovery.ErrBusy:
		writeError(w, http.StatusConflict, err.Error())
	case recovery.ErrDisabled:
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type recoveryConfigureRequest struct {
	Enabled          *bool           `json:"enabled"`
	ProactiveEnabled *bool           `json:"proactiveEnabled"`
	MaxAttempts      *int            `json:"maxAttempts"`
	CooldownSeconds  *int            `json:"cooldownSeconds"`
	Strategies       map[string]bool `json:"strategies"`
}

func (s *Server) handleRecoveryConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req recoveryConfigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opts := recovery.Options{
		Enabled:          req.Enabled,
		ProactiveEnabled: req.ProactiveEnabled,
		MaxAttempts:      req.MaxAttempts,
		Strategies:       req.Strategies,
	}
	if req.CooldownSeconds != nil {
		d := time.Duration(*req.CooldownSeconds) * time.Second
		opts.Cooldown = &d
	}
	s.node.engine.Configure(opts)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDeadLetters surfaces exhausted queue items for inspection (GET) and
// purges them once an operator has dealt with them (DELETE).
func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.node.queue.DeadLetters(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "items": items})
	case http.MethodDelete:
		n, err := s.node.queue.PurgeDead(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"purged": n})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or DELETE required")
	}
}

func parsePriority(s string) (domain.Priority, bool) {
	switch domain.Priority(s) {
	case "":
		return domain.PriorityMedium, true
	case domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		return domain.Priority(s), true
	default:
		return "", false
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
