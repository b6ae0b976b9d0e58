// cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vexflow/mediaspider/internal/config"
	"github.com/vexflow/mediaspider/internal/monitoring"
	"github.com/vexflow/mediaspider/internal/sandbox"
	"github.com/vexflow/mediaspider/pkg/api"
)

var (
	version = "dev"
)

// server bundles the API client with HTTP handlers.
type server struct {
	client *api.Client
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg := config.Default()
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		loaded, err := config.LoadFromFile(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load configuration")
		}
		cfg = loaded
	}

	client, err := api.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client")
	}
	defer client.Close()

	srv := &server{client: client}
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Str("version", version).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// routes wires all HTTP endpoints.
func (s *server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/metrics", monitoring.Handler()).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/parse", s.parseHandler).Methods("POST")
	v1.HandleFunc("/contexts", s.createContextHandler).Methods("POST")
	v1.HandleFunc("/contexts/{id}", s.destroyContextHandler).Methods("DELETE")
	v1.HandleFunc("/contexts/{id}/evaluate", s.evaluateHandler).Methods("POST")
	v1.HandleFunc("/contexts/{id}/call", s.callHandler).Methods("POST")

	return r
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   version,
		"contexts":  s.client.ContextCount(),
		"timestamp": time.Now().UTC(),
	})
}

type parseRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// parseHandler extracts media metadata. When the request carries an
// HTML body it is parsed directly; otherwise the URL is fetched
// first.
func (s *server) parseHandler(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.URL == "" && req.HTML == "" {
		writeError(w, http.StatusBadRequest, "either url or html is required")
		return
	}

	if req.HTML != "" {
		writeJSON(w, http.StatusOK, s.client.Parse(req.URL, req.HTML))
		return
	}
	writeJSON(w, http.StatusOK, s.client.ParseURL(r.Context(), req.URL))
}

type createContextRequest struct {
	MemoryBytes int64 `json:"memoryBytes,omitempty"`
	StackBytes  int64 `json:"stackBytes,omitempty"`
}

func (s *server) createContextHandler(w http.ResponseWriter, r *http.Request) {
	var req createContextRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	var id int64
	var err error
	if req.MemoryBytes > 0 || req.StackBytes > 0 {
		id, err = s.client.CreateContextWithLimits(api.ResourceLimits{
			MemoryBytes: req.MemoryBytes,
			StackBytes:  req.StackBytes,
		})
	} else {
		id, err = s.client.CreateContext()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create context: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (s *server) destroyContextHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := contextID(w, r)
	if !ok {
		return
	}
	if err := s.client.DestroyContext(id); err != nil {
		if errors.Is(err, sandbox.ErrContextNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type evaluateRequest struct {
	Source string `json:"source"`
}

func (s *server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := contextID(w, r)
	if !ok {
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	// The string boundary keeps script failures out of the HTTP
	// error space: clients always get a 200 with a result string.
	writeJSON(w, http.StatusOK, map[string]string{
		"result": s.client.EvaluateString(id, req.Source),
	})
}

type callRequest struct {
	Function string `json:"function"`
	Args     string `json:"args,omitempty"`
}

func (s *server) callHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := contextID(w, r)
	if !ok {
		return
	}
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Function == "" {
		writeError(w, http.StatusBadRequest, "function is required")
		return
	}
	if req.Args == "" {
		req.Args = "{}"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"result": s.client.CallFunctionString(id, req.Function, req.Args),
	})
}

func contextID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid context id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
