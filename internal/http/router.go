package http

import (
	"log/slog"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UserRepository is everything the handlers collectively need from the users
// store. Satisfied by repo/mongodb and repo/memory.
type UserRepository interface {
	handlers.UserStore
	handlers.PasswordUserStore
	handlers.ProfileStore
}

type Deps struct {
	Users    UserRepository
	Sessions *auth.Manager
	Issuer   handlers.PasscodeIssuer
	Verifier handlers.PasscodeVerifier
	Resolver middlewares.PrincipalResolver
	Profiles *cache.Cache
	Prom     *observability.Prom
	Registry *prometheus.Registry
	Ping     func() error
}

func NewRouter(log *slog.Logger, cfg config.Config, d Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	}

	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB is plenty for these bodies
	r.Use(middlewares.RequireJSON())

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(otelgin.Middleware("authhub"))

	// health + metrics

	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// identity from the upstream gateway

	principal := middlewares.NewPrincipalMiddleware(d.Resolver)

	// rate limit the unauthenticated credential endpoints
	limiter := middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)

	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, d.Verifier, cfg)
	otpHandler := handlers.NewOTPHandler(d.Issuer, d.Verifier)
	passwordHandler := handlers.NewPasswordHandler(d.Users, d.Issuer, d.Verifier, d.Profiles)
	usersHandler := handlers.NewUsersHandler(d.Users, d.Profiles)

	authGroup := r.Group("/auth")
	authGroup.Use(principal.Attach())

	authGroup.POST("", limiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Authenticate)
	authGroup.POST("/send-otp", limiter.RateLimiterMiddleware(middlewares.KeyByIP), otpHandler.SendOTP)
	authGroup.POST("/verify-otp", limiter.RateLimiterMiddleware(middlewares.KeyByIP), otpHandler.VerifyOTP)

	// forgot/reset run anonymous, update/set authenticated; the handler sorts
	// the events out, so only the rate limit sits on the route
	authGroup.PUT("/password", limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), passwordHandler.ManagePassword)

	authGroup.GET("/user", principal.RequireIdentity(), usersHandler.GetUser)
	authGroup.PUT("/user", principal.RequireIdentity(), usersHandler.UpdateUser)
	authGroup.DELETE("/user", principal.RequireRole("admin"), usersHandler.DeleteUser)

	return r
}
