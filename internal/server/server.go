package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"prompt-storefront/internal/config"
	"prompt-storefront/internal/handler"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/middleware"
	"prompt-storefront/internal/service"
)

// Services groups what the HTTP layer calls into.
type Services struct {
	Checkout   service.CheckoutService
	Catalog    service.CatalogService
	User       service.UserService
	Download   service.DownloadService
	Assistant  service.AssistantService
	Newsletter service.NewsletterService
	Contact    service.ContactService
}

type Server struct {
	echo             *echo.Echo
	cfg              *config.Config
	verifier         middleware.TokenVerifier
	checkoutHandler  *handler.CheckoutHandler
	catalogHandler   *handler.CatalogHandler
	userHandler      *handler.UserHandler
	assistantHandler *handler.AssistantHandler
	marketingHandler *handler.MarketingHandler
	activityHandler  *handler.ActivityHandler
}

func NewServer(
	cfg *config.Config,
	log logging.Logger,
	verifier middleware.TokenVerifier,
	services Services,
	feed handler.ActivityFeed,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			"Stripe-Signature",
		},
		MaxAge: 86400,
	}))
	e.Use(echomw.BodyLimit("1M"))

	s := &Server{
		echo:             e,
		cfg:              cfg,
		verifier:         verifier,
		checkoutHandler:  handler.NewCheckoutHandler(services.Checkout),
		catalogHandler:   handler.NewCatalogHandler(services.Catalog),
		userHandler:      handler.NewUserHandler(services.User, services.Download),
		assistantHandler: handler.NewAssistantHandler(services.Assistant),
		marketingHandler: handler.NewMarketingHandler(services.Newsletter, services.Contact),
		activityHandler:  handler.NewActivityHandler(feed),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	requireAuth := middleware.AuthMiddleware(s.verifier)
	optionalAuth := middleware.OptionalAuthMiddleware(s.verifier)
	limited := middleware.RateLimiter(s.cfg.RateLimit)

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- checkout --------
	checkout := api.Group("/checkout", requireAuth)
	checkout.POST("/create-payment", s.checkoutHandler.CreatePayment)
	checkout.POST("/verify-payment", s.checkoutHandler.VerifyPayment)
	checkout.POST("/reconcile-orders", s.checkoutHandler.ReconcileOrders)

	// -------- stripe webhooks --------
	api.POST("/stripe/webhook", s.checkoutHandler.StripeWebhook)

	// -------- catalog --------
	api.GET("/categories", s.catalogHandler.ListCategories)
	api.GET("/prompts", s.catalogHandler.ListPrompts, optionalAuth)
	api.GET("/prompts/:id", s.catalogHandler.GetPrompt, optionalAuth)
	api.GET("/prompts/:id/qr", s.catalogHandler.PromptQR)
	api.POST("/prompts/enhance", s.assistantHandler.EnhancePrompt, requireAuth, limited)
	api.GET("/packs", s.catalogHandler.ListPacks)
	api.GET("/packs/:id", s.catalogHandler.GetPack)
	api.GET("/packs/:id/download", s.userHandler.DownloadPack, requireAuth)

	api.GET("/me/entitlements", s.userHandler.GetEntitlements, requireAuth)

	// -------- marketing --------
	api.POST("/newsletter/subscribe", s.marketingHandler.Subscribe, limited)
	api.POST("/contact", s.marketingHandler.Contact, optionalAuth, limited)

	// -------- activity feed --------
	api.GET("/activity/recent", s.activityHandler.Recent)
	api.GET("/activity/ws", s.activityHandler.Stream)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
