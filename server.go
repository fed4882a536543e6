package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/config"
	"github.com/kasunvimarshana/TrackVault-sub000/engine"
	"github.com/kasunvimarshana/TrackVault-sub000/middleware"
	"github.com/kasunvimarshana/TrackVault-sub000/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type errorResponse struct {
	Error string `json:"error"`
}

type SyncServer struct {
	config        *config.Config
	store         store.RecordStore
	orchestrator  *engine.Orchestrator
	resolver      *engine.Resolver
	feed          *engine.ChangeFeed
	eventsManager *eventsManager
	logger        *slog.Logger
}

func NewSyncServer(config *config.Config, st store.RecordStore, logger *slog.Logger) *SyncServer {
	audit := engine.NewSlogAuditEmitter(logger.With("component", "audit"))
	return &SyncServer{
		config:        config,
		store:         st,
		orchestrator:  engine.NewOrchestrator(st, audit, logger),
		resolver:      engine.NewResolver(st, audit),
		feed:          engine.NewChangeFeed(st, config.FeedPageCap),
		eventsManager: newEventsManager(),
		logger:        logger,
	}
}

func (s *SyncServer) Start(quitChan chan struct{}) {
	s.eventsManager.start(quitChan)
}

func (s *SyncServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleSyncBatch)
	mux.HandleFunc("/sync/resolve", s.handleResolve)
	mux.HandleFunc("/sync/changes", s.handleChanges)
	mux.HandleFunc("/sync/status", s.handleStatus)
	mux.HandleFunc("/sync/track", s.handleTrack)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealthz)
	return cors.AllowAll().Handler(mux)
}

func (s *SyncServer) handleSyncBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx, err := middleware.Authenticate(s.config, r, body)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	var request engine.BatchRequest
	if err := json.Unmarshal(body, &request); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reply, err := s.orchestrator.SyncBatch(ctx, request.Items, middleware.Actor(ctx))
	if err != nil {
		syncBatchesTotal.WithLabelValues("aborted").Inc()
		s.logger.Error("sync batch aborted", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	syncBatchesTotal.WithLabelValues("committed").Inc()
	syncItemsTotal.WithLabelValues("success").Add(float64(len(reply.Success)))
	syncItemsTotal.WithLabelValues("conflict").Add(float64(len(reply.Conflicts)))
	syncItemsTotal.WithLabelValues("error").Add(float64(len(reply.Errors)))

	for _, entry := range reply.Success {
		s.eventsManager.notifyChange(&engine.RecordPayload{
			ServerID: entry.ServerID,
			Fields:   entry.Data,
			Version:  entry.Version,
		})
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *SyncServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx, err := middleware.Authenticate(s.config, r, body)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	var request engine.ResolveRequest
	if err := json.Unmarshal(body, &request); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	strategy := engine.Strategy(request.Strategy)
	record, err := s.resolver.Resolve(ctx, request.ServerID, request.ClientData, strategy, middleware.Actor(ctx))
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidStrategy):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, store.ErrVersionConflict):
			writeError(w, http.StatusConflict, err)
		default:
			s.logger.Error("conflict resolution failed", "server_id", request.ServerID, "error", err)
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	conflictResolutionsTotal.WithLabelValues(request.Strategy).Inc()

	payload := engine.NewRecordPayload(record)
	if strategy != engine.ServerWins {
		s.eventsManager.notifyChange(&payload)
	}
	writeJSON(w, http.StatusOK, engine.ResolveReply{
		Record:  payload,
		Version: record.Version,
	})
}

func (s *SyncServer) handleChanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ctx, err := middleware.Authenticate(s.config, r, nil)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid since timestamp: %w", err))
			return
		}
		since = &parsed
	}

	records, asOf, err := s.feed.ChangesSince(ctx, since)
	if err != nil {
		s.logger.Error("change feed query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	payloads := make([]engine.RecordPayload, len(records))
	for i := range records {
		payloads[i] = engine.NewRecordPayload(&records[i])
	}
	writeJSON(w, http.StatusOK, engine.ChangesReply{
		Records: payloads,
		AsOf:    asOf,
	})
}

func (s *SyncServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, engine.StatusReply{Time: time.Now().UTC()})
}

func (s *SyncServer) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, err := middleware.Authenticate(s.config, r, nil); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	subscription := s.eventsManager.subscribe()
	defer s.eventsManager.unsubscribe(subscription.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event, ok := <-subscription.eventsChan:
			if !ok {
				return
			}
			data, err := json.Marshal(event.record)
			if err != nil {
				s.logger.Error("failed to marshal change event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
