package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mw "github.com/padraicbc/wagergenie/middleware"
	"github.com/padraicbc/wagergenie/models"
	"github.com/padraicbc/wagergenie/store"
)

type meResponse struct {
	ID           int64                `json:"id"`
	Username     string               `json:"username"`
	Plan         models.Plan          `json:"plan"`
	Profile      *models.UserProfile  `json:"profile"`
	Subscription *models.Subscription `json:"subscription"`
}

// Me returns the signed-in user with their profile and plan. Users without
// a subscription are on the free plan.
func (h *Handler) Me(c echo.Context) error {
	userID, ok := mw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	ctx := c.Request().Context()

	res := meResponse{ID: userID, Plan: models.PlanFree}
	res.Username, _ = c.Get(mw.UsernameKey).(string)

	profile, err := h.store.Profile(ctx, userID)
	switch {
	case err == nil:
		res.Profile = profile
	case !errors.Is(err, store.ErrNotFound):
		h.log.Error("loading profile failed", zap.Int64("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}

	sub, err := h.store.Subscription(ctx, userID)
	switch {
	case err == nil:
		res.Subscription = sub
		if sub.Status == models.StatusActive {
			res.Plan = sub.Plan
		}
	case !errors.Is(err, store.ErrNotFound):
		h.log.Error("loading subscription failed", zap.Int64("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}

	return c.JSON(http.StatusOK, res)
}
