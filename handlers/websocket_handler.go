package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rgalymov/gameclub-backend/middleware"
	"github.com/rgalymov/gameclub-backend/realtime"
	"github.com/rgalymov/gameclub-backend/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin.
		return true
	},
}

type WebSocketHandler struct {
	hub           *realtime.Hub
	memberService services.MemberService
}

func NewWebSocketHandler(hub *realtime.Hub, memberService services.MemberService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		memberService: memberService,
	}
}

// ServeWs подключает клиента к комнате клуба.
// Клиент подключается к /ws/clubs/{clubID}, токен передаётся
// либо заголовком Authorization, либо query-параметром token.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	clubID, err := getIDFromURL(r, "clubID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	// События клуба видят только его участники.
	if _, err := h.memberService.GetRole(r.Context(), clubID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection for club %d: %v", clubID, err)
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту.
		return
	}

	client := &realtime.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: realtime.ClubRoom(clubID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
