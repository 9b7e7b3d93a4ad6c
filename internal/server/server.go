package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/loops-backend/internal/config"
	"github.com/shinyyama/loops-backend/internal/handler"
	"github.com/shinyyama/loops-backend/internal/metrics"
	appmw "github.com/shinyyama/loops-backend/internal/middleware"
	"github.com/shinyyama/loops-backend/internal/profile"
	"github.com/shinyyama/loops-backend/internal/realtime"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/reqctx"
	"github.com/shinyyama/loops-backend/internal/service"
	"gorm.io/gorm"
)

// Deps are the external clients the server is built around. Profiles and
// Redis are optional.
type Deps struct {
	Auth     *appmw.AuthMiddleware
	Profiles profile.Provider
	Redis    *redis.Client
	Metrics  *metrics.Metrics
}

type Server struct {
	e      *echo.Echo
	repos  *repository.Repositories
	broker *realtime.RedisBroker
}

func New(db *gorm.DB, cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext)
	e.Use(middleware.Logger())
	allowOrigin := originAllower(cfg.AllowedOriginSuffix)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", appmw.DebugUIDHeader},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			return allowOrigin(origin), nil
		},
	}))

	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	repos := repository.NewRepositories(db)
	hub := realtime.NewHub(m)

	var publisher service.Publisher = hub
	var broker *realtime.RedisBroker
	if deps.Redis != nil {
		broker = realtime.NewRedisBroker(deps.Redis, hub)
		publisher = broker
	}

	listingSvc := service.NewListingService(repos.Listings)
	messageSvc := service.NewMessageService(repos.Messages, repos.Listings, publisher, m)
	threadSvc := service.NewThreadService(repos.Messages, repos.Listings, deps.Profiles)
	relay := service.NewNotificationRelay(messageSvc, m)
	statusSvc := service.NewStatusService(repos, repos, service.NewTransactionRecorder(m), relay, m)
	txSvc := service.NewTransactionService(repos.Transactions)
	userSvc := service.NewUserService(deps.Profiles, repos.Reputation, repos.Reviews)

	listingHandler := handler.NewListingHandler(listingSvc, statusSvc)
	threadHandler := handler.NewThreadHandler(threadSvc, messageSvc)
	transitionHandler := handler.NewTransitionHandler(statusSvc)
	txHandler := handler.NewTransactionHandler(txSvc)
	streamHandler := handler.NewStreamHandler(threadSvc, messageSvc, hub, allowOrigin)
	userHandler := handler.NewUserHandler(userSvc)

	s := &Server{e: e, repos: repos, broker: broker}

	e.GET("/healthz", func(c echo.Context) error {
		status := http.StatusOK
		dbReady := s.dbReady()
		if !dbReady {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]interface{}{
			"ok":         dbReady,
			"git_sha":    cfg.GitSHA,
			"build_time": cfg.BuildTime,
		})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api")
	api.Use(deps.Auth.RequireAuth)
	api.POST("/listings", listingHandler.Create)
	api.GET("/listings/:id", listingHandler.Get)
	api.GET("/listings/:id/transitions", listingHandler.History)
	api.POST("/listings/:id/transitions", transitionHandler.Fire)
	api.GET("/listings/:id/transaction", txHandler.GetByListing)
	api.GET("/listings/:id/thread", threadHandler.GetThread)
	api.GET("/listings/:id/thread/live", streamHandler.Live)
	api.POST("/listings/:id/messages", threadHandler.PostMessage)
	api.GET("/inbox", threadHandler.Inbox)
	api.GET("/me/transactions", txHandler.ListMine)
	api.GET("/users/:uid/public", userHandler.GetPublic)

	return s
}

// requestContext copies the request id into the request context so
// services can tag their log lines with it.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		if rid != "" {
			c.SetRequest(c.Request().WithContext(reqctx.WithRID(c.Request().Context(), rid)))
		}
		return next(c)
	}
}

// originAllower accepts localhost on any port plus hosts under suffix.
func originAllower(suffix string) func(origin string) bool {
	suffix = strings.ToLower(strings.TrimSpace(suffix))
	return func(origin string) bool {
		u, err := url.Parse(strings.ToLower(origin))
		if err != nil {
			return false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" {
			return true
		}
		return suffix != "" && (host == suffix || strings.HasSuffix(host, "."+suffix))
	}
}

func (s *Server) dbReady() bool {
	return s.repos.DB() != nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// RunBroker relays messages published by other instances until ctx ends.
// Without Redis there is nothing to relay and it returns immediately.
func (s *Server) RunBroker(ctx context.Context) error {
	if s.broker == nil {
		return nil
	}
	return s.broker.Run(ctx)
}

func (s *Server) SetDB(db *gorm.DB) {
	s.repos.SetDB(db)
}
