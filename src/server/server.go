package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/handler"
	"tradejournal/src/service"
)

// HealthFunc reports whether the backing store answers.
type HealthFunc func(ctx context.Context) error

// NewRouter wires every route. Everything but /healthcheck requires a
// bearer token.
func NewRouter(config *Config, verifier *auth.Verifier, svc *service.TradeService, health HealthFunc) chi.Router {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				logger.WithError(err).Error("healthcheck failed")
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	maxUpload := config.MaxUploadBytes()

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", handler.ListTradesHandler(svc))
			r.Post("/", handler.CreateTradeHandler(svc))
			r.Delete("/", handler.DeleteAllTradesHandler(svc))
			r.Post("/import", handler.ImportTradesHandler(svc, maxUpload))
			r.Post("/import/preview", handler.PreviewImportHandler(svc, maxUpload))
			r.Get("/import/failures", handler.ImportFailuresHandler(svc))
			r.Get("/keys", handler.TradeKeysHandler(svc))
			r.Put("/{id}", handler.UpdateTradeHandler(svc))
			r.Delete("/{id}", handler.DeleteTradeHandler(svc))
		})

		r.Get("/accounts", handler.ListAccountsHandler(svc))
		r.Post("/accounts", handler.CreateAccountHandler(svc))

		r.Post("/screenshots", handler.UploadScreenshotHandler(svc, maxUpload))
		r.Get("/screenshots/sign", handler.SignScreenshotHandler(svc))
	})

	return r
}

// StartServer serves handler on port until SIGINT or SIGTERM.
func StartServer(port string, handler http.Handler) {
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
