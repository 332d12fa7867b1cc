package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/notify"
	"github.com/kirinyoku/meetly/internal/session"
)

// Limiter throttles favorite toggles per user.
type Limiter interface {
	Allow(ctx context.Context, id string) (bool, time.Duration, error)
}

// Idempotency replays the first answer of a keyed checkout.
type Idempotency interface {
	Begin(ctx context.Context, key string) (payload string, done bool, err error)
	Complete(ctx context.Context, key, payload string) error
	Abort(ctx context.Context, key string) error
}

type Deps struct {
	Sessions *session.Manager
	Notices  *notify.Buffer
	Limiter  Limiter
	Idem     Idempotency
	Logger   *slog.Logger
}

func NewRouter(deps Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(deps.Logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/sessions", handleOpenSession(deps.Sessions))
	r.DELETE("/sessions/:sid", handleCloseSession(deps.Sessions))

	api := r.Group("/", SessionMiddleware(deps.Sessions))
	{
		registerEntity(api, "/events", entityAccess[domain.Event]{
			cache:  func(s *session.Session) entityCache[domain.Event] { return s.Events },
			writes: func(s *session.Session) entityWriter[domain.Event] { return s.EventWrites },
			maxAge: "120",
		})
		registerEntity(api, "/meetups", entityAccess[domain.Meetup]{
			cache:  func(s *session.Session) entityCache[domain.Meetup] { return s.Meetups },
			writes: func(s *session.Session) entityWriter[domain.Meetup] { return s.MeetupWrites },
			maxAge: "120",
		})
		registerEntity(api, "/bookings", entityAccess[domain.Booking]{
			cache:  func(s *session.Session) entityCache[domain.Booking] { return s.Bookings },
			writes: func(s *session.Session) entityWriter[domain.Booking] { return s.BookingWrites },
			maxAge: "0",
		})
		registerEntity(api, "/users", entityAccess[domain.User]{
			cache:  func(s *session.Session) entityCache[domain.User] { return s.Users },
			writes: func(s *session.Session) entityWriter[domain.User] { return s.UserWrites },
			maxAge: "300",
		})

		api.GET("/items", handleListItems())
		api.GET("/items/:id", handleGetItem())

		api.POST("/favorites/toggle", handleToggleFavorite(deps.Limiter))
		api.GET("/favorites", handleListFavorites())

		api.GET("/booking", handleGetBooking())
		api.DELETE("/booking", handleClearBooking())
		api.PUT("/booking/details", handleSetBookingDetails())
		api.POST("/booking/seats", handleAddSeat())
		api.DELETE("/booking/seats/:seat", handleRemoveSeat())
		api.GET("/booking/total", handleBookingTotal())
		api.POST("/booking/checkout", handleCheckout(deps.Idem))

		api.GET("/meetups/wizard", handleGetWizard())
		api.POST("/meetups/wizard", handleAdvanceWizard())
		api.POST("/meetups/wizard/back", handleWizardBack())

		api.GET("/notifications", handleNotifications(deps.Notices))
	}

	return r
}
