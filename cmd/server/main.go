package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/composer/internal/collab"
	"github.com/inamate/composer/internal/config"
	"github.com/inamate/composer/internal/document"
	mw "github.com/inamate/composer/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	store := document.NewStore(cfg.DocumentDir)
	hub := collab.NewHub(store.Load, logger)
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery(logger))
	r.Use(mw.Logger(logger))
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	r.HandleFunc("/api/documents/{documentId}", func(w http.ResponseWriter, r *http.Request) {
		handleGetDocument(w, r, hub, store)
	}).Methods("GET", "OPTIONS")

	// WebSocket endpoint
	r.HandleFunc("/ws/document/{documentId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, cfg.OriginPatterns(), logger)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "addr", addr, "documents", cfg.DocumentDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// handleGetDocument serves the live room state when one exists, otherwise
// the stored document.
func handleGetDocument(w http.ResponseWriter, r *http.Request, hub *collab.Hub, store *document.Store) {
	documentID := mux.Vars(r)["documentId"]

	if doc, ok := hub.Document(documentID); ok {
		writeJSON(w, http.StatusOK, doc)
		return
	}

	doc, err := store.Load(documentID)
	switch {
	case errors.Is(err, document.ErrInvalidDocumentID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, document.ErrDocumentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
	case err != nil:
		slog.Error("load document", "error", err, "document", documentID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load document"})
	default:
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, origins []string, logger *slog.Logger) {
	documentID := mux.Vars(r)["documentId"]

	// Every connection is an anonymous editor
	userID := "anon-" + uuid.New().String()[:8]
	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = "Anonymous"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		logger.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, documentID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
