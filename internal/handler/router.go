package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/connect-therapy/session-chat/internal/config"
	"github.com/connect-therapy/session-chat/internal/handler/participant"
	"github.com/connect-therapy/session-chat/internal/handler/room"
	"github.com/connect-therapy/session-chat/internal/handler/session"
	"github.com/connect-therapy/session-chat/internal/hub"
	middlewarePkg "github.com/connect-therapy/session-chat/internal/middleware"
	participantModel "github.com/connect-therapy/session-chat/internal/model/participant"
	sessionService "github.com/connect-therapy/session-chat/internal/service/session"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
	"github.com/connect-therapy/session-chat/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(participants participantModel.Store, sessionSvc *sessionService.Service, roomHub *hub.Hub, wsCfg config.WebSocketConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(pkglog.HTTPMiddleware(pkglog.Component("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	participantHandler := participant.New(participants)
	sessionHandler := session.New(sessionSvc)
	wsHandler := room.NewWebSocketHandler(sessionSvc, roomHub, wsCfg)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-roomHub.Done():
			utils.RespondError(w, http.StatusServiceUnavailable, "hub stopped")
		default:
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	})

	r.Route("/api", func(api chi.Router) {
		participantHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
