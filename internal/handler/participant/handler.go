package participant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/connect-therapy/session-chat/internal/model/participant"
	"github.com/connect-therapy/session-chat/pkg/utils"
)

// Handler participant目录的HTTP处理器
type Handler struct {
	participants participant.Store
}

// New 创建participant处理器
func New(participants participant.Store) *Handler {
	return &Handler{
		participants: participants,
	}
}

// RegisterRoutes 注册participant相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/participants", h.handleListParticipants)
}

// handleListParticipants 列出所有participant
func (h *Handler) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.participants.List())
}
