package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/Skotchmaster/shopping/internal/logging"
	"github.com/Skotchmaster/shopping/internal/middleware/auth"
	"github.com/labstack/echo/v4"
)

// ReadyFunc reports whether a backing dependency can serve requests.
type ReadyFunc func(ctx context.Context) error

type Deps struct {
	CartHandler  *CartHTTP
	OrderHandler *OrderHTTP
	JWTSecret    []byte
	Ready        []ReadyFunc
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		for _, ready := range d.Ready {
			if err := ready(ctx); err != nil {
				logging.FromContext(ctx).Warn("readiness_failed", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := auth.RequireCustomer(d.JWTSecret)

	cart := e.Group("/cart", authMW)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddItem)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.PATCH("/:productId", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:productId", d.CartHandler.RemoveItem)

	orders := e.Group("/orders", authMW)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("/:orderId", d.OrderHandler.GetOrder)
}
