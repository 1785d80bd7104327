package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/moneybuckets/internal/transport/httpapi/handler"
	"github.com/kislikjeka/moneybuckets/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/moneybuckets/pkg/logger"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger             *logger.Logger
	AllowedOrigins     []string
	RateLimiter        *middleware.RateLimiter
	AuthHandler        *handler.AuthHandler
	AccountHandler     *handler.AccountHandler
	BucketHandler      *handler.BucketHandler
	TransactionHandler *handler.TransactionHandler
	KeywordHandler     *handler.KeywordHandler
	ImportHandler      *handler.ImportHandler
	HealthHandler      *handler.HealthHandler
	JWTMiddleware      func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.GetHealth)
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		if cfg.JWTMiddleware == nil {
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(cfg.JWTMiddleware)

			if h := cfg.AccountHandler; h != nil {
				r.Route("/accounts", func(r chi.Router) {
					r.Post("/", h.CreateAccount)
					r.Get("/", h.GetAccounts)
					r.Get("/{id}", h.GetAccount)
					r.Put("/{id}", h.UpdateAccount)
					r.Delete("/{id}", h.DeleteAccount)
				})
			}

			if h := cfg.BucketHandler; h != nil {
				r.Route("/buckets", func(r chi.Router) {
					r.Post("/", h.CreateBucket)
					r.Get("/", h.GetBuckets)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.GetBucket)
						r.Put("/", h.UpdateBucket)
						r.Delete("/", h.DeleteBucket)
						r.Get("/history", h.GetHistory)
						r.Post("/market-values", h.RecordMarketValue)
						r.Delete("/market-values/{entryID}", h.DeleteMarketValue)
						r.Get("/transactions", h.GetTransactions)
						r.Post("/trades", h.RecordTrade)
					})
				})
			}

			if h := cfg.TransactionHandler; h != nil {
				r.Route("/transactions", func(r chi.Router) {
					r.Post("/", h.CreateTransaction)
					r.Get("/", h.GetTransactions)
					r.Post("/duplicates", h.CheckDuplicate)
					r.Get("/{id}", h.GetTransaction)
					r.Put("/{id}", h.UpdateTransaction)
					r.Delete("/{id}", h.DeleteTransaction)
				})
			}

			if h := cfg.KeywordHandler; h != nil {
				r.Route("/keywords", func(r chi.Router) {
					r.Post("/", h.CreateKeyword)
					r.Get("/", h.GetKeywords)
					r.Get("/suggest", h.Suggest)
					r.Delete("/{id}", h.DeleteKeyword)
				})
			}

			if h := cfg.ImportHandler; h != nil {
				r.Post("/imports/csv", h.ImportCSV)
			}
		})
	})

	return r
}
