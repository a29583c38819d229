package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/felemax/felia/internal/dialogue"
	"github.com/felemax/felia/internal/session"
)

// ChatHandler exposes the dialogue loop over HTTP.
type ChatHandler struct {
	Orch     *dialogue.Orchestrator
	Sessions *session.Store
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
}

// chat handles one conversational turn. A blank session id starts a new
// conversation; the resolved id always comes back in the response.
func (h *ChatHandler) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	text := req.EffectiveText()
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	_, sid := h.Sessions.Get(req.EffectiveSession())
	reply := h.Orch.Handle(c.Request().Context(), sid, text)
	return c.JSON(http.StatusOK, ChatResponse{
		SessionID: sid,
		Reply:     reply.Text,
		Trace:     reply.Trace,
	})
}
