package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	sessionService "github.com/connect-therapy/session-chat/internal/service/session"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
	"github.com/connect-therapy/session-chat/pkg/utils"
)

// Handler 会话服务的HTTP处理器
type Handler struct {
	sessionSvc *sessionService.Service
}

// New 创建会话处理器
func New(sessionSvc *sessionService.Service) *Handler {
	return &Handler{sessionSvc: sessionSvc}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Get("/sessions/{sessionID}/access", h.handleAccess)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PractitionerID string `json:"practitionerId"`
		PatientID      string `json:"patientId"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.PractitionerID = strings.TrimSpace(payload.PractitionerID)
	payload.PatientID = strings.TrimSpace(payload.PatientID)
	if payload.PractitionerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "practitionerId is required")
		return
	}

	created, err := h.sessionSvc.CreateSession(r.Context(), payload.PractitionerID, payload.PatientID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	logger := pkglog.Ctx(r.Context())
	logger.Info().Str(pkglog.FieldSessionID, created.ID).Bool("booked", created.Booked()).Msg("session created")
	utils.RespondJSON(w, http.StatusCreated, created)
}

// handleGetSession 查询会话
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	found, err := h.sessionSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, found)
}

// handleAccess checks whether a participant may enter the session room and
// hands back the page to return to after leaving.
func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	participantID := strings.TrimSpace(r.URL.Query().Get("participant"))
	if participantID == "" {
		utils.RespondError(w, http.StatusBadRequest, "participant query parameter is required")
		return
	}

	access, err := h.sessionSvc.Authorize(r.Context(), chi.URLParam(r, "sessionID"), participantID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, access)
}

// StatusFor maps session service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, sessionService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, sessionService.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, sessionService.ErrNotBooked):
		return http.StatusConflict
	case errors.Is(err, sessionService.ErrPractitionerRequired),
		errors.Is(err, sessionService.ErrUnknownParticipant),
		errors.Is(err, sessionService.ErrWrongRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
