package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/certhub/internal/config"
	"github.com/geocoder89/certhub/internal/http/handlers"
	"github.com/geocoder89/certhub/internal/http/middlewares"
	"github.com/geocoder89/certhub/internal/observability"
)

// Deps is everything the router mounts. Without Prom there is no /metrics.
type Deps struct {
	Log      *slog.Logger
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Auth middlewares.TokenVerifier

	Health        *handlers.HealthHandler
	Users         *handlers.UsersHandler
	Events        *handlers.EventsHandler
	Attendees     *handlers.AttendeesHandler
	Receivers     *handlers.ReceiversHandler
	Subscriptions *handlers.SubscriptionsHandler
}

func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("certhub-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))

	// probes and scraping stay outside the app secret
	r.GET("/healthz", d.Health.Healthz)
	r.GET("/readyz", d.Health.Readyz)
	if d.Prom != nil {
		gatherer := d.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/")
	api.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	api.Use(middlewares.RequireJSON())
	api.Use(middlewares.RequireAppSecret(cfg.AppSecret))

	authLimiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	limitAuth := authLimiter.Middleware(middlewares.KeyByIP)

	// submit is limited per user with the same budget
	submitLimiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	limitSubmit := submitLimiter.Middleware(middlewares.KeyByUserOrIP)

	requireAuth := middlewares.NewAuthMiddleware(d.Auth).RequireAuth()

	// users
	api.POST("/users", limitAuth, d.Users.SignUp)
	api.POST("/users/login", limitAuth, d.Users.Login)
	api.GET("/users", d.Users.GetByEmail)

	authed := api.Group("/")
	authed.Use(requireAuth)

	authed.GET("/users/me", d.Users.Me)
	authed.PUT("/users/me", d.Users.UpdateMe)
	authed.GET("/users/events", d.Users.Events)

	// events
	authed.POST("/events", d.Events.CreateEvent)
	authed.GET("/events/:id", d.Events.GetEventByID)
	authed.PUT("/events/:id", d.Events.UpdateEvent)
	authed.DELETE("/events/:id", d.Events.DeleteEvent)
	authed.POST("/events/:id/submit", limitSubmit, d.Events.SubmitEvent)

	// attendees
	authed.POST("/events/:id/attendees", d.Attendees.CreateAttendee)
	authed.GET("/events/:id/attendees", d.Attendees.ListByEvent)
	authed.GET("/attendees/:id", d.Attendees.GetAttendee)
	authed.PUT("/attendees/:id", d.Attendees.UpdateAttendee)
	authed.DELETE("/attendees/:id", d.Attendees.DeleteAttendee)

	// receivers
	authed.POST("/events/:id/receivers", d.Receivers.CreateReceiver)
	authed.GET("/events/:id/receivers", d.Receivers.ListByEvent)
	authed.DELETE("/receivers/:id", d.Receivers.DeleteReceiver)

	// subscriptions
	authed.POST("/subscriptions", d.Subscriptions.Create)
	authed.GET("/subscriptions/status", d.Subscriptions.Status)

	return r
}
