// Package api exposes the order workflow over HTTP.
package api

import (
	"net/http"
	"os"
	"strconv"

	"food-order-service/internal/apperr"
	"food-order-service/internal/auth"
	"food-order-service/internal/entity"
	"food-order-service/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

type OrderHandler struct {
	orderService *service.OrderService
	debug        bool
}

func NewOrderHandler(orderService *service.OrderService, debug bool) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		debug:        debug,
	}
}

type statusRequest struct {
	Status entity.OrderStatus `json:"status" validate:"required"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	req := service.CreateOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.New(apperr.InvalidInput, "Invalid request payload"), h.debug)
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err, h.debug)
	}

	createdOrder, err := h.orderService.CreateOrder(c.Request().Context(), caller, req)
	if err != nil {
		return writeError(c, err, h.debug)
	}
	return c.JSON(http.StatusCreated, createdOrder)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	page, err := queryInt(c, "page")
	if err != nil {
		return writeError(c, err, h.debug)
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return writeError(c, err, h.debug)
	}

	result, err := h.orderService.ListOrders(c.Request().Context(), caller, service.ListRequest{
		Status:   entity.OrderStatus(c.QueryParam("status")),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return writeError(c, err, h.debug)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	order, err := h.orderService.GetOrder(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return writeError(c, err, h.debug)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	req := statusRequest{}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.New(apperr.InvalidInput, "Invalid request payload"), h.debug)
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err, h.debug)
	}

	order, err := h.orderService.TransitionStatus(c.Request().Context(), caller, c.Param("id"), req.Status)
	if err != nil {
		return writeError(c, err, h.debug)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) History(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	history, err := h.orderService.OrderHistory(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return writeError(c, err, h.debug)
	}
	return c.JSON(http.StatusOK, map[string]any{"history": history})
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.New(apperr.InvalidInput, "invalid %s %q", name, raw)
	}
	return n, nil
}
