package server

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/felemax/felia/internal/session"
)

// AdminHandler groups the operational endpoints: catalog reindexing and
// session resets. All routes sit behind JWT auth.
type AdminHandler struct {
	Sessions *session.Store
	// Reindex reloads the catalog source and swaps the live index. Nil when
	// the configured backend has nothing to rebuild (mock).
	Reindex func() (int, error)
	Logger  *log.Logger
}

func (h *AdminHandler) Register(g *echo.Group) {
	g.POST("/reindex", h.reindex)
	g.POST("/sessions/:id/reset", h.resetSession)
	g.GET("/sessions/count", h.sessionCount)
}

func (h *AdminHandler) reindex(c echo.Context) error {
	if h.Reindex == nil {
		return echo.NewHTTPError(http.StatusConflict, "catalog backend does not support reindexing")
	}
	n, err := h.Reindex()
	if err != nil {
		h.Logger.Printf("reindex failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Logger.Printf("catalog reindexed: %d entries", n)
	return c.JSON(http.StatusOK, ReindexResponse{Entries: n})
}

func (h *AdminHandler) resetSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id required")
	}
	h.Sessions.Reset(id)
	return c.NoContent(http.StatusOK)
}

func (h *AdminHandler) sessionCount(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"sessions": h.Sessions.Len()})
}
