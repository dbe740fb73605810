package api

import (
	"net/http"

	"food-order-service/internal/apperr"
	"food-order-service/internal/auth"
	"food-order-service/internal/entity"
	"food-order-service/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService *service.CartService
	debug       bool
}

func NewCartHandler(cartService *service.CartService, debug bool) *CartHandler {
	return &CartHandler{cartService: cartService, debug: debug}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	items, err := h.cartService.List(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err, h.debug)
	}
	if items == nil {
		items = []entity.CartEntry{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *CartHandler) PutItem(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	req := service.CartItemRequest{}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.New(apperr.InvalidInput, "Invalid request payload"), h.debug)
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err, h.debug)
	}

	entry, err := h.cartService.PutItem(c.Request().Context(), caller, req)
	if err != nil {
		return writeError(c, err, h.debug)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	if err := h.cartService.RemoveItem(c.Request().Context(), caller, c.Param("menuItemId")); err != nil {
		return writeError(c, err, h.debug)
	}
	return c.NoContent(http.StatusNoContent)
}
