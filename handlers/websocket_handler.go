package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/athleon/academy-engine/live"
	"github.com/athleon/academy-engine/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict Origin once the frontend domains are settled.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub         *live.Hub
	tournaments services.TournamentService
	mapper      errorMapper
}

func NewWebSocketHandler(hub *live.Hub, tournaments services.TournamentService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		tournaments: tournaments,
		mapper:      errorMapper{logger: logger},
	}
}

// ServeWs upgrades the connection and joins the tournament's event room.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}
	if _, err := h.tournaments.Get(r.Context(), id); err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.mapper.logger.ErrorContext(r.Context(), "websocket upgrade failed",
			slog.Int("tournament_id", id),
			slog.Any("error", err),
		)
		return
	}
	h.hub.Subscribe(conn, id)
}
