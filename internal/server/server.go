package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/agri-marketplace/internal/handler"
	"github.com/shinyyama/agri-marketplace/internal/lock"
	appmw "github.com/shinyyama/agri-marketplace/internal/middleware"
	"github.com/shinyyama/agri-marketplace/internal/repository"
	"github.com/shinyyama/agri-marketplace/internal/service"
	"gorm.io/gorm"
)

type Options struct {
	// Auth guards every /api route except single-listing and public-profile reads.
	Auth  *appmw.AuthMiddleware
	Users service.UserDirectory

	CORSAllowedSuffix string
	GitSHA            string
	BuildTime         string
}

type dbSetter interface {
	SetDB(db *gorm.DB)
}

type Server struct {
	e       *echo.Echo
	setters []dbSetter
	dbReady atomic.Bool
}

// New wires the HTTP surface. db may be nil; repositories answer
// ErrDBNotReady until SetDB is called.
func New(db *gorm.DB, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(appmw.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", echo.HeaderXRequestID, appmw.HeaderUserID, appmw.HeaderUserRole},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(opts.CORSAllowedSuffix),
	}))

	listingRepo := repository.NewListingRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	eventRepo := repository.NewOfferEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	txRunner := repository.NewTxRunner(db)

	locks := lock.NewKeyedMutex()
	notifySvc := service.NewNotificationService(notificationRepo)
	listingSvc := service.NewListingService(txRunner, listingRepo, offerRepo, eventRepo, notifySvc, locks)
	offerSvc := service.NewOfferService(txRunner, listingRepo, offerRepo, eventRepo, notifySvc, opts.Users, locks)

	listingHandler := handler.NewListingHandler(listingSvc)
	offerHandler := handler.NewOfferHandler(offerSvc)
	notificationHandler := handler.NewNotificationHandler(notifySvc)

	s := &Server{
		e:       e,
		setters: []dbSetter{listingRepo, offerRepo, eventRepo, notificationRepo, txRunner},
	}
	s.dbReady.Store(db != nil)

	e.GET("/healthz", func(c echo.Context) error {
		dbState := "pending"
		if s.dbReady.Load() {
			dbState = "ready"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"db":         dbState,
			"git_sha":    opts.GitSHA,
			"build_time": opts.BuildTime,
		})
	})

	api := e.Group("/api")
	auth := opts.Auth.RequireAuth

	api.GET("/listings", listingHandler.List, auth)
	api.GET("/listings/:id", listingHandler.Get)
	api.POST("/listings", listingHandler.Create, auth)
	api.PUT("/listings/:id", listingHandler.Update, auth)
	api.DELETE("/listings/:id", listingHandler.Delete, auth)
	api.POST("/listings/:id/cancel", listingHandler.Cancel, auth)
	api.GET("/me/listings", listingHandler.ListMine, auth)

	api.POST("/listings/:id/offers", offerHandler.Make, auth)
	api.GET("/listings/:id/offers", offerHandler.ListForListing, auth)
	api.POST("/offers/:id/respond", offerHandler.Respond, auth)
	api.POST("/offers/:id/withdraw", offerHandler.Withdraw, auth)
	api.GET("/offers/:id/history", offerHandler.History, auth)
	api.GET("/me/offers", offerHandler.ListMine, auth)

	api.GET("/me/notifications", notificationHandler.List, auth)
	api.POST("/me/notifications/read", notificationHandler.MarkRead, auth)

	if opts.Users != nil {
		api.GET("/users/:uid/public", handler.NewUserHandler(opts.Users).GetPublic)
	}

	return s
}

// allowOrigin accepts localhost during development and any host under suffix.
func allowOrigin(suffix string) func(origin string) (bool, error) {
	suffix = strings.ToLower(strings.TrimSpace(suffix))
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(low)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		if suffix != "" && strings.HasSuffix(u.Hostname(), suffix) {
			return true, nil
		}
		return false, nil
	}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// SetDB injects a connection established after the server started.
func (s *Server) SetDB(db *gorm.DB) {
	for _, st := range s.setters {
		st.SetDB(db)
	}
	s.dbReady.Store(db != nil)
}
