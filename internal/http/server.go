package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/service"
)

const cartHeader = "X-Cart-ID"

// Deps зависимости HTTP-слоя
type Deps struct {
	Auth       *auth.Service
	Authorizer *auth.Authorizer
	Products   *service.ProductService
	Orders     *service.OrderService
	Checkout   *service.CheckoutService
	Banners    *service.BannerService
	Carts      *cart.Store

	// MediaDir раздаётся по MediaURL; пустой - статика не подключается
	MediaDir string
	MediaURL string

	LoginRPS   float64
	LoginBurst int
	Logger     *slog.Logger
}

type Server struct {
	engine     *gin.Engine
	auth       *auth.Service
	authorizer *auth.Authorizer
	products   *service.ProductService
	orders     *service.OrderService
	checkout   *service.CheckoutService
	banners    *service.BannerService
	carts      *cart.Store
	login      *ipLimiter
	logger     *slog.Logger
}

func NewServer(d Deps) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.LoginRPS <= 0 {
		d.LoginRPS = 1
	}
	if d.LoginBurst <= 0 {
		d.LoginBurst = 5
	}
	s := &Server{
		engine:     r,
		auth:       d.Auth,
		authorizer: d.Authorizer,
		products:   d.Products,
		orders:     d.Orders,
		checkout:   d.Checkout,
		banners:    d.Banners,
		carts:      d.Carts,
		login:      newIPLimiter(d.LoginRPS, d.LoginBurst),
		logger:     d.Logger,
	}
	if d.MediaDir != "" && d.MediaURL != "" {
		r.Static(d.MediaURL, d.MediaDir)
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	optional := s.authenticate(false)
	required := s.authenticate(true)

	v1 := s.engine.Group("/api/v1")
	{
		authg := v1.Group("/auth")
		authg.POST("/register", s.rateLimit(s.login), s.register)
		authg.POST("/login", s.rateLimit(s.login), s.loginUser)
		authg.POST("/admin/login", s.rateLimit(s.login), s.loginAdmin)

		v1.GET("/products", s.listProducts)
		v1.GET("/products/:id", s.getProduct)
		v1.GET("/collections", s.listCollections)
		v1.GET("/collections/:slug", s.getCollection)
		v1.GET("/banners", s.getBanners)

		cartg := v1.Group("/cart")
		cartg.GET("", s.getCart)
		cartg.DELETE("", s.clearCart)
		cartg.POST("/items", s.addCartItem)
		cartg.PATCH("/items/:id", s.updateCartItem)
		cartg.DELETE("/items/:id", s.removeCartItem)

		co := v1.Group("/checkout", optional)
		co.POST("", s.startCheckout)
		co.GET("", s.viewCheckout)
		co.POST("/shipping", s.submitShipping)
		co.POST("/payment", s.submitPayment)
		co.POST("/verify", s.submitVerification)
		co.POST("/back", s.checkoutBack)

		orders := v1.Group("/orders", required, s.requirePermission(auth.ResourceAccount, auth.ActionRead))
		orders.GET("", s.listMyOrders)
		orders.GET("/:id", s.getOrder)

		admin := v1.Group("/admin", required)
		admin.POST("/products", s.requirePermission(auth.ResourceProducts, auth.ActionWrite), s.createProduct)
		admin.PUT("/products/:id", s.requirePermission(auth.ResourceProducts, auth.ActionWrite), s.updateProduct)
		admin.DELETE("/products/:id", s.requirePermission(auth.ResourceProducts, auth.ActionWrite), s.deleteProduct)

		admin.GET("/orders", s.requirePermission(auth.ResourceOrders, auth.ActionRead), s.listAllOrders)
		admin.GET("/orders/:id/history", s.requirePermission(auth.ResourceOrders, auth.ActionRead), s.orderHistory)
		admin.POST("/orders/:id/status", s.requirePermission(auth.ResourceOrders, auth.ActionWrite), s.updateOrderStatus)
		admin.DELETE("/orders/:id", s.requirePermission(auth.ResourceOrders, auth.ActionWrite), s.deleteOrder)

		admin.PUT("/banners/:slot", s.requirePermission(auth.ResourceBanners, auth.ActionWrite), s.uploadBanner)
	}
}
