package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pagemark/pagemark/backend-go/internal/asset"
	"github.com/pagemark/pagemark/backend-go/internal/auth"
	"github.com/pagemark/pagemark/backend-go/internal/config"
	"github.com/pagemark/pagemark/backend-go/internal/db"
	"github.com/pagemark/pagemark/backend-go/internal/docsvc"
	"github.com/pagemark/pagemark/backend-go/internal/engine"
	"github.com/pagemark/pagemark/backend-go/internal/export"
	"github.com/pagemark/pagemark/backend-go/internal/importer"
	mw "github.com/pagemark/pagemark/backend-go/internal/middleware"
	"github.com/pagemark/pagemark/backend-go/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	queries := db.New(pool)

	assets, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset store", "error", err)
		os.Exit(1)
	}
	assetHandler := asset.NewHandler(assets)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	decoder := importer.NewPopplerDecoder(cfg.PdfinfoPath, cfg.PdftoppmPath)
	imp := importer.New(decoder, assets, cfg.ImportScale)
	flattener := export.NewFlattener(assets)

	docService := docsvc.NewService(queries, imp, flattener, assets)
	docHandler := docsvc.NewHandler(docService)

	hub := session.NewHub(docService, assets)
	go hub.Run()

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Rasters referenced by draw commands; served to any holder of the id.
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.RequireAuth)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/documents", docHandler.List).Methods("GET")
	api.HandleFunc("/documents", docHandler.Create).Methods("POST")
	api.HandleFunc("/documents/{id}", docHandler.Get).Methods("GET")
	api.HandleFunc("/documents/{id}", docHandler.Delete).Methods("DELETE")
	api.HandleFunc("/documents/{id}/snapshot", docHandler.GetSnapshot).Methods("GET")
	api.HandleFunc("/documents/{id}/export", docHandler.Export).Methods("GET")

	wsOrigins := originHostPatterns(cfg.AllowedOrigins)
	r.HandleFunc("/ws/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleEditorSocket(w, r, hub, authService, docService, wsOrigins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// handleEditorSocket opens an editor session on a document: authenticate via
// the token query param (browsers cannot set headers on websocket upgrades),
// seed a private engine from the latest snapshot, then hand the connection to
// the session pumps.
func handleEditorSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, docSvc *docsvc.Service, origins []string) {
	documentID := mux.Vars(r)["id"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	model, err := docSvc.GetLatestSnapshot(r.Context(), documentID, userID)
	if err != nil {
		switch err {
		case docsvc.ErrNotFound:
			http.Error(w, "document not found", http.StatusNotFound)
		case docsvc.ErrForbidden:
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			slog.Error("load snapshot", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	eng := engine.New()
	if err := eng.LoadDocument(model); err != nil {
		slog.Error("load document", "document", documentID, "error", err)
		http.Error(w, "snapshot is corrupt", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	sess := session.NewSession(hub, conn, eng, userID, documentID, uuid.New().String())
	if err := hub.Register(sess); err != nil {
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	ctx := r.Context()
	go sess.WritePump(ctx)
	sess.ReadPump(ctx)
}

// originHostPatterns turns configured origins into the host patterns the
// websocket accept check matches against.
func originHostPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
