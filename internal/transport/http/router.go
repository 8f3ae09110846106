package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/resale_shop/internal/apperr"
	"github.com/Skotchmaster/resale_shop/internal/handlers"
	"github.com/Skotchmaster/resale_shop/internal/middleware/auth"
	"github.com/Skotchmaster/resale_shop/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/resale_shop/internal/middleware/logging"
)

type Deps struct {
	DB       *gorm.DB
	Auth     *handlers.AuthHTTP
	Product  *handlers.ProductHTTP
	Cart     *handlers.CartHTTP
	Order    *handlers.OrderHTTP
	Checkout *handlers.CheckoutHTTP
	AuthMW   *auth.Middleware
}

type Options struct {
	Logger         *slog.Logger
	FrontendOrigin string
	Production     bool
}

// New builds the echo instance with the shared middleware chain and all routes.
func New(d *Deps, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.Handler(o.Production)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(o.Logger))

	var trusted []string
	if o.FrontendOrigin != "" {
		trusted = []string{o.FrontendOrigin}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     trusted,
			AllowCredentials: true,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{
				echo.HeaderContentType, echo.HeaderAccept,
				"X-CSRF-Token", handlers.HeaderIdempotencyKey,
			},
			ExposeHeaders: []string{"X-CSRF-Token"},
		}))
	}
	e.Use(csrf.Middleware(csrf.Config{
		Secure:         o.Production,
		TrustedOrigins: trusted,
		SkipPaths:      []string{"/api/user/login", "/api/user/register"},
	}))

	Register(e, d)
	return e
}

func ready(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		if err := sqlDB.PingContext(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.DB))

	api := e.Group("/api")
	requireUser := d.AuthMW.RequireUser

	user := api.Group("/user")
	user.POST("/register", d.Auth.Register)
	user.POST("/login", d.Auth.Login)
	user.POST("/logout", d.Auth.Logout)
	user.GET("/me", d.Auth.Me, requireUser)

	products := api.Group("/products")
	products.GET("", d.Product.ListProducts)
	products.GET("/:id", d.Product.GetProduct)

	cart := user.Group("/cart", requireUser)
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddToCart)
	cart.DELETE("", d.Cart.ClearCart)
	cart.PUT("/:id", d.Cart.UpdateQuantity)
	cart.DELETE("/:id", d.Cart.RemoveItem)

	orders := user.Group("/orders", requireUser)
	orders.GET("", d.Order.ListOrders)
	orders.GET("/:id", d.Order.GetOrder)

	pay := api.Group("/payment", requireUser)
	pay.POST("/create-order", d.Order.CreateOrder)
	pay.POST("/verify", d.Order.VerifyPayment)

	// legacy aliases
	ord := api.Group("/order", requireUser)
	ord.POST("/create", d.Order.CreateOrder)
	ord.POST("/verify", d.Order.VerifyPayment)

	co := api.Group("/checkout", requireUser)
	co.GET("", d.Checkout.GetState)
	co.DELETE("", d.Checkout.Reset)
	co.PUT("/address", d.Checkout.SetAddress)
	co.POST("/next", d.Checkout.Next)
	co.POST("/prev", d.Checkout.Prev)
}
