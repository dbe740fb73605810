package api

import (
	"context"
	"net/http"

	"food-order-service/internal/auth"
	"food-order-service/internal/entity"
	"food-order-service/internal/notify"
	"food-order-service/internal/realtime"
	"food-order-service/internal/repository"

	"github.com/labstack/echo/v4"
)

// LiveHandler upgrades authenticated clients to the realtime hub.
type LiveHandler struct {
	hub   *realtime.Hub
	store repository.Store
	debug bool
}

func NewLiveHandler(hub *realtime.Hub, store repository.Store, debug bool) *LiveHandler {
	return &LiveHandler{hub: hub, store: store, debug: debug}
}

func (h *LiveHandler) Subscribe(c echo.Context) error {
	caller, err := auth.CallerFrom(c)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	topics, err := h.topicsFor(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err, h.debug)
	}

	if err := h.hub.Serve(c.Response(), c.Request(), topics); err != nil {
		logger.Warn().Err(err).Str("caller", caller.ID).Msg("websocket upgrade failed")
	}
	return nil
}

func (h *LiveHandler) topicsFor(ctx context.Context, caller entity.Caller) ([]string, error) {
	switch caller.Role {
	case entity.RoleCustomer:
		return []string{notify.CustomerTopic(caller.ID)}, nil
	case entity.RoleCook:
		ids, err := h.store.RestaurantIDsByOwner(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		topics := make([]string, 0, len(ids))
		for _, id := range ids {
			topics = append(topics, notify.RestaurantTopic(id))
		}
		return topics, nil
	default:
		return []string{realtime.AllTopics}, nil
	}
}

type HealthHandler struct {
	store repository.Store
}

func NewHealthHandler(store repository.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		logger.Error().Err(err).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
