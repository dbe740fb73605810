package api

import (
	"food-order-service/internal/auth"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Orders *OrderHandler
	Cart   *CartHandler
	Live   *LiveHandler
	Health *HealthHandler
}

// NewEcho returns an echo instance with request validation and the JSON error
// shape installed.
func NewEcho(debug bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = debug
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler(debug)
	return e
}

func RegisterRoutes(e *echo.Echo, secret []byte, h Handlers) {
	e.GET("/healthz", h.Health.Health)

	g := e.Group("", auth.Middleware(secret))

	g.POST("/orders", h.Orders.CreateOrder)
	g.GET("/orders", h.Orders.ListOrders)
	g.GET("/orders/:id", h.Orders.GetOrder)
	g.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
	g.GET("/orders/:id/history", h.Orders.History)

	g.GET("/cart", h.Cart.GetCart)
	g.PUT("/cart/items", h.Cart.PutItem)
	g.DELETE("/cart/items/:menuItemId", h.Cart.RemoveItem)

	g.GET("/ws", h.Live.Subscribe)
}
