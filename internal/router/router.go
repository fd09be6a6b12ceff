package router

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "pet-adoption/docs"
	"pet-adoption/internal/adapters/auth/tokens"
	mem "pet-adoption/internal/adapters/storage/memory"
	pg "pet-adoption/internal/adapters/storage/postgres"
	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/domain/applications"
	"pet-adoption/internal/domain/pets"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/config"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Config config.Config
	Logger logger.Logger // nil = nop

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: rate limiting compartido entre réplicas.
	Redis *redis.Client
}

type repos struct {
	accounts     accounts.Repository
	pets         pets.Repository
	applications applications.Repository
}

func NewRouter(opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	cfg := opts.Config

	tokenSvc, err := tokens.NewService(cfg.Tokens)
	if err != nil {
		return nil, err
	}

	var rp repos
	if opts.DB != nil {
		rp = repos{
			accounts:     pg.NewAccountsRepo(opts.DB),
			pets:         pg.NewPetsRepo(opts.DB),
			applications: pg.NewApplicationsRepo(opts.DB),
		}
	} else {
		store := mem.NewStore()
		rp = repos{
			accounts:     store.Accounts(),
			pets:         store.Pets(),
			applications: store.Applications(),
		}
	}

	// Services por módulo
	accountsSvc := accounts.NewService(rp.accounts, accounts.NewBcryptHasher(cfg.Auth.BcryptCost), tokenSvc, cfg.Auth)
	petsSvc := pets.NewService(rp.pets)
	applicationsSvc := applications.NewService(rp.applications, petsSvc, accountsSvc)

	if cfg.Auth.AdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		admin, err := accountsSvc.EnsureAdministrator(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		cancel()
		if err != nil {
			return nil, err
		}
		log.Info("administrator ready", map[string]any{"account_id": admin.ID, "email": admin.Email})
	}

	gate := middleware.NewGate(tokens.NewVerifier(tokenSvc), accountsSvc)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.AuthContext(gate))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.Envelope{Success: false, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, httpx.Envelope{Success: false, Message: "method not allowed"})
	})

	r.Get("/health", healthHandler(opts.DB))
	r.Handle("/metrics", metrics.Handler())

	if cfg.SwaggerEnabled {
		r.Get("/docs/*", httpSwagger.WrapHandler)
	}

	// Rutas por módulo
	accounts.RegisterRoutes(r, accountsSvc, newLimiter(cfg, opts.Redis))
	pets.RegisterRoutes(r, petsSvc)
	applications.RegisterRoutes(r, applicationsSvc)

	return r, nil
}

// newLimiter: Redis si hay cliente; si no, buckets locales. RATE_LIMIT_RPS <= 0 lo desactiva.
func newLimiter(cfg config.Config, client *redis.Client) middleware.Limiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	if client != nil {
		return middleware.NewRedisLimiter(client, cfg.RateLimitBurst, time.Second)
	}
	return middleware.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

// healthHandler godoc
// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} httpx.Envelope
// @Failure 503 {object} httpx.Envelope
// @Router /health [get]
func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storage := "memory"
		if db != nil {
			storage = "postgres"
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, httpx.Envelope{
					Success: false,
					Message: "storage unavailable",
				})
				return
			}
		}
		httpx.Data(w, http.StatusOK, map[string]string{"status": "ok", "storage": storage})
	}
}
