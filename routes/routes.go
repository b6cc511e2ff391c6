package routes

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phillip/campus-pay-go/auth"
	"github.com/phillip/campus-pay-go/config"
	"github.com/phillip/campus-pay-go/controllers"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/services"
	"github.com/phillip/campus-pay-go/utils"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Config   *config.Config
	Services *services.Services
	JWT      *auth.JWTManager
	Media    utils.Uploader
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// New builds the gin engine with the middleware stack and every route.
func New(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	middleware.UseTagFieldNames()

	r := gin.New()
	r.Use(
		middleware.Recovery(d.Logger),
		middleware.RequestID(),
		middleware.RequestLogger(d.Logger),
		middleware.Metrics(d.Metrics),
		cors.New(corsConfig(d.Config.CORSOrigins)),
		middleware.ErrorHandler(d.Logger),
		middleware.Timeout(d.Config.RequestTimeout),
	)
	SetupRoutes(r, d)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", controllers.IdempotencyHeader, middleware.RequestIDHeader, "If-None-Match"},
		ExposeHeaders: []string{"ETag", middleware.RequestIDHeader},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func SetupRoutes(r *gin.Engine, d Deps) {
	svc := d.Services

	// public
	r.POST("/auth/register", controllers.Register(svc.Auth))
	r.POST("/auth/login", controllers.Login(svc.Auth))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	if d.Config.Media.Driver == config.MediaLocal {
		r.Static(utils.LocalURLPrefix, d.Config.Media.UploadDir)
	}

	// protected
	authed := middleware.Auth(d.JWT)

	users := r.Group("/users", authed)
	{
		users.GET("/me", controllers.Me(svc.Users))
		users.GET("/:id", controllers.GetUser(svc.Users))
	}

	clubs := r.Group("/clubs", authed)
	{
		clubs.POST("/create", controllers.CreateClub(svc.Clubs, d.Media))
		clubs.GET("", controllers.ListClubs(svc.Clubs))
		clubs.GET("/:id", controllers.GetClub(svc.Clubs))
		clubs.POST("/:id/add-organizer", controllers.AddOrganizer(svc.Clubs))
		clubs.POST("/:id/join", controllers.JoinClub(svc.Clubs))
		clubs.POST("/:id/requests/:userId/approve", controllers.ApproveJoinRequest(svc.Clubs))
		clubs.POST("/:id/requests/:userId/deny", controllers.DenyJoinRequest(svc.Clubs))
	}

	events := r.Group("/events", authed)
	{
		events.POST("/create", controllers.CreateEvent(svc.Events, d.Media))
		events.GET("/calendar", controllers.EventCalendar(svc.Events))
		events.GET("/:id", controllers.GetEvent(svc.Events))
		events.POST("/:id/register", controllers.RegisterForEvent(svc.Events))
	}

	groups := r.Group("/groups", authed)
	{
		groups.POST("", controllers.CreateGroup(svc.Groups))
		groups.GET("", controllers.ListGroups(svc.Groups))
		groups.GET("/:id", controllers.GetGroup(svc.Groups))
		groups.POST("/:id/split-bill", controllers.SplitBill(svc.Groups))
		groups.POST("/:id/bills/:billId/settle", controllers.SettleShare(svc.Groups))
		groups.POST("/:id/messages", controllers.PostGroupMessage(svc.Groups))
		groups.GET("/:id/messages", controllers.ListGroupMessages(svc.Groups))
	}

	txs := r.Group("/transactions", authed)
	{
		txs.POST("/send", controllers.SendMoney(svc.Payments))
		txs.POST("/request", controllers.RequestMoney(svc.Payments))
		txs.GET("", controllers.ListTransactions(svc.Payments))
	}

	wallet := r.Group("/wallet", authed)
	{
		wallet.GET("/balance", controllers.WalletBalance(svc.Payments))
		wallet.POST("/top-up", controllers.TopUp(svc.Payments))
	}

	notifs := r.Group("/notifications", authed)
	{
		notifs.GET("", controllers.ListNotifications(svc.Notifications))
		notifs.PUT("/:id/read", controllers.MarkNotificationRead(svc.Notifications))
	}

	r.GET("/search", authed, controllers.Search(svc.Search))
}
