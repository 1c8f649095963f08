package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mw "github.com/padraicbc/wagergenie/middleware"
	"github.com/padraicbc/wagergenie/models"
	"github.com/padraicbc/wagergenie/store"
)

type resultUpdate struct {
	Result models.Result `json:"result"`
}

// Picks returns the caller's newest picks.
func (h *Handler) Picks(c echo.Context) error {
	userID, ok := mw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	limit := queryLimit(c.QueryParam("limit"), 10, 200)
	picks, err := h.store.PicksByUser(c.Request().Context(), userID, limit)
	if err != nil {
		h.log.Error("loading picks failed", zap.Int64("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}
	if picks == nil {
		picks = []models.Pick{}
	}
	return c.JSON(http.StatusOK, picks)
}

// UpdatePickResult settles one of the caller's picks.
func (h *Handler) UpdatePickResult(c echo.Context) error {
	userID, ok := mw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	pickID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || pickID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid pick id")
	}

	var body resultUpdate
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !body.Result.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "result must be win, loss or pending")
	}

	err = h.store.UpdatePickResult(c.Request().Context(), userID, pickID, body.Result)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "pick not found")
		}
		h.log.Error("updating pick failed", zap.Int64("pick_id", pickID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}

	return c.JSON(http.StatusOK, map[string]any{"id": pickID, "result": body.Result})
}
