package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andes-audit/concilia/internal/engine"
	"github.com/andes-audit/concilia/internal/export"
	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/report"
	"github.com/andes-audit/concilia/internal/session"
	"github.com/andes-audit/concilia/internal/store"
	"github.com/andes-audit/concilia/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session API for interactive auditing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.NewSQLite(cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var gen *report.Generator
		if cfg.Anthropic.Key != "" {
			gen = report.NewGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		}

		srv := newServer(st, gen, cfg.Report.TopN)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("session API listening", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server owns session snapshots for the API. Transitions are serialized by
// a single mutex: snapshots are loaded, transformed by pure session
// functions, and saved back whole.
type server struct {
	mu    sync.Mutex
	store store.SessionStore
	gen   *report.Generator
	topN  int
}

func newServer(st store.SessionStore, gen *report.Generator, topN int) *server {
	return &server{store: st, gen: gen, topN: topN}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/reset", s.resetSession)

			r.Post("/sources/{source}", s.loadRows)
			r.Put("/sources/{source}/mapping", s.setMapping)

			r.Post("/analyze", s.analyze)
			r.Get("/analysis", s.getAnalysis)
			r.Get("/metrics", s.getMetrics)
			r.Get("/months", s.getMonths)

			r.Post("/audit", s.setAuditStatus)
			r.Post("/audit/bulk", s.setAuditBulk)
			r.Post("/audit/auto", s.autoReconcile)

			r.Get("/export", s.exportMissing)
			r.Post("/report", s.generateReport)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// update loads a snapshot, applies fn, and saves the result wholesale.
func (s *server) update(ctx context.Context, id string, fn func(session.State) (session.State, error)) (*session.State, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, http.StatusNotFound, err
		}
		return nil, http.StatusInternalServerError, err
	}

	next, err := fn(*state)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrNotReady) {
			status = http.StatusPreconditionFailed
		}
		return nil, status, err
	}

	if err := s.store.Save(ctx, next); err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &next, http.StatusOK, nil
}

func (s *server) load(w http.ResponseWriter, r *http.Request) *session.State {
	state, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil
	}
	return state
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entity string `json:"entity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Entity == "" {
		writeError(w, http.StatusBadRequest, "entity is required")
		return
	}

	state := session.New(uuid.New().String(), req.Entity)
	if err := s.store.Save(r.Context(), state); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (s *server) listSessions(w http.ResponseWriter, r *http.Request) {
	// ?entity= returns the most recent session for that entity, letting a
	// returning auditor pick up where they left off.
	if entity := r.URL.Query().Get("entity"); entity != "" {
		state, err := s.store.ByEntity(r.Context(), entity)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no session for entity")
			} else {
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	infos, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if infos == nil {
		infos = []store.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	if state := s.load(w, r); state != nil {
		writeJSON(w, http.StatusOK, state)
	}
}

func (s *server) deleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) resetSession(w http.ResponseWriter, r *http.Request) {
	state, status, err := s.update(r.Context(), chi.URLParam(r, "id"), func(st session.State) (session.State, error) {
		return st.Reset(), nil
	})
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func parseSource(r *http.Request) (model.Source, bool) {
	switch chi.URLParam(r, "source") {
	case string(model.SourceSoftland):
		return model.SourceSoftland, true
	case string(model.SourceControl):
		return model.SourceControl, true
	default:
		return "", false
	}
}

func (s *server) loadRows(w http.ResponseWriter, r *http.Request) {
	src, ok := parseSource(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	var req struct {
		FileName string           `json:"file_name"`
		Headers  []string         `json:"headers"`
		Rows     []model.RawRow   `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "rows are required")
		return
	}

	_, status, err := s.update(r.Context(), chi.URLParam(r, "id"), func(st session.State) (session.State, error) {
		return st.WithRows(src, req.FileName, req.Headers, req.Rows), nil
	})
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source": src,
		"rows":   len(req.Rows),
	})
}

func (s *server) setMapping(w http.ResponseWriter, r *http.Request) {
	src, ok := parseSource(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	var m model.ColumnMapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, status, err := s.update(r.Context(), chi.URLParam(r, "id"), func(st session.State) (session.State, error) {
		return st.WithMapping(src, m), nil
	})
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":   src,
		"complete": m.Complete(),
		"missing":  m.MissingFields(),
		"ready":    state.CanAnalyze(),
	})
}

func (s *server) analyze(w http.ResponseWriter, r *http.Request) {
	state, status, err := s.update(r.Context(), chi.URLParam(r, "id"), session.State.Analyze)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state.Analysis)
}

func (s *server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	state := s.load(w, r)
	if state == nil {
		return
	}
	if state.Analysis == nil {
		writeError(w, http.StatusNotFound, "no analysis available")
		return
	}
	writeJSON(w, http.StatusOK, state.Analysis)
}

func (s *server) getMetrics(w http.ResponseWriter, r *http.Request) {
	state := s.load(w, r)
	if state == nil {
		return
	}
	m, err := state.Metrics()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) getMonths(w http.ResponseWriter, r *http.Request) {
	state := s.load(w, r)
	if state == nil {
		return
	}
	if state.Analysis == nil {
		writeError(w, http.StatusNotFound, "no analysis available")
		return
	}
	writeJSON(w, http.StatusOK, engine.AggregateByMonth(state.Analysis.Missing))
}

func parseStatus(raw string) (model.AuditStatus, bool) {
	switch model.AuditStatus(raw) {
	case model.AuditPending, model.AuditVerified, model.AuditFailed:
		return model.AuditStatus(raw), true
	default:
		return "", false
	}
}

func (s *server) setAuditStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key    string `json:"key"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key and status are required")
		return
	}
	status, ok := parseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "status must be pending, verified, or failed")
		return
	}

	state, code, err := s.update(r.Context(), chi.URLParam(r, "id"), func(st session.State) (session.State, error) {
		return st.WithAuditStatus(req.Key, status), nil
	})
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state.Audit)
}

func (s *server) setAuditBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys   []string `json:"keys"`
		Status string   `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Keys) == 0 {
		writeError(w, http.StatusBadRequest, "keys and status are required")
		return
	}
	status, ok := parseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "status must be pending, verified, or failed")
		return
	}

	state, code, err := s.update(r.Context(), chi.URLParam(r, "id"), func(st session.State) (session.State, error) {
		return st.WithAuditBulk(req.Keys, status), nil
	})
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state.Audit)
}

func (s *server) autoReconcile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, code, err := s.update(r.Context(), chi.URLParam(r, "id"), func(st session.State) (session.State, error) {
		keys := req.Keys
		if len(keys) == 0 && st.Analysis != nil {
			// Default to the whole discrepancy set.
			for _, rec := range st.Analysis.Missing {
				keys = append(keys, rec.Key)
			}
		}
		return st.WithAutoReconcile(keys)
	})
	if err != nil {
		status := code
		if errors.Is(err, session.ErrNoAnalysis) {
			status = http.StatusPreconditionFailed
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state.Audit)
}

func (s *server) exportMissing(w http.ResponseWriter, r *http.Request) {
	state := s.load(w, r)
	if state == nil {
		return
	}
	if state.Analysis == nil {
		writeError(w, http.StatusNotFound, "no analysis available")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="faltantes.csv"`)
	if err := export.WriteMissingCSV(w, state.Analysis.Missing, state.Audit); err != nil {
		zap.L().Error("export failed", zap.String("session", state.ID), zap.Error(err))
	}
}

func (s *server) generateReport(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "report generation is not configured")
		return
	}

	state := s.load(w, r)
	if state == nil {
		return
	}
	if state.Analysis == nil {
		writeError(w, http.StatusPreconditionFailed, "no analysis available")
		return
	}

	summary := report.BuildSummary(state.Analysis, state.Audit, state.Entity, s.topN)
	text, err := s.gen.Generate(r.Context(), summary)
	if err != nil {
		// Collaborator failures are surfaced inline; the analysis and audit
		// state are untouched and the request can simply be retried.
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}

	next, code, err := s.update(r.Context(), state.ID, func(st session.State) (session.State, error) {
		return st.WithReport(text), nil
	})
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": next.Report})
}
