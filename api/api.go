package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/teamloft/teamloft/api/rest"
	"github.com/teamloft/teamloft/api/ws"
	"github.com/teamloft/teamloft/cache"
	"github.com/teamloft/teamloft/mq"
	"github.com/teamloft/teamloft/service"
	"github.com/teamloft/teamloft/store"
	"github.com/teamloft/teamloft/worker"
)

type TeamloftAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.WsHandler
	shutdownCtx context.Context
}

func NewTeamloftAPI(
	teamloftStore store.TeamloftStore,
	notificationQueue mq.NotificationQueue,
	teamloftCache cache.TeamloftCache,
	jwtSecret string,
	clientOrigin string,
	shutdownCtx context.Context,
) (*TeamloftAPI, error) {
	activityBatcher := worker.NewActivityBatcher(teamloftStore, teamloftCache, 1000)
	go activityBatcher.Run(shutdownCtx)

	svc, err := service.NewService(teamloftStore, teamloftCache, notificationQueue, activityBatcher, jwtSecret)
	if err != nil {
		log.Printf("Failed to create service: %v", err)
		return &TeamloftAPI{}, err
	}

	wsHub := ws.NewHub(teamloftCache, svc.Throttle())
	if err := wsHub.InitSubscriptions(shutdownCtx); err != nil {
		log.Printf("Failed to start WS Hub subscriptions: %v", err)
		return &TeamloftAPI{}, err
	}

	presenceSweeper := worker.NewPresenceSweeper(wsHub, svc.Throttle(), 15, 60*time.Second)
	go presenceSweeper.Run(shutdownCtx)

	notifyConsumer := worker.NewNotifyConsumer(notificationQueue, svc)
	go notifyConsumer.Run(shutdownCtx)

	return &TeamloftAPI{
		restHandler: rest.NewHandler(svc),
		wsHandler:   ws.NewWsHandler(shutdownCtx, svc, wsHub, clientOrigin),
		shutdownCtx: shutdownCtx,
	}, nil
}

func (teamloftAPI *TeamloftAPI) RegisterRoutes(mux *http.ServeMux) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/register", teamloftAPI.restHandler.HandleRegister)
	mux.HandleFunc("/login", teamloftAPI.restHandler.HandleLogin)
	mux.HandleFunc("/me", teamloftAPI.restHandler.HandleMe)
	mux.HandleFunc("/notifications", teamloftAPI.restHandler.HandleNotifications)
	mux.HandleFunc("/notifications/enqueue", teamloftAPI.restHandler.HandleNotifyEnqueue)
	mux.HandleFunc("/messages/deliver", teamloftAPI.restHandler.HandleDeliverMessage)
	mux.HandleFunc("/activities", teamloftAPI.restHandler.HandleActivities)
	mux.HandleFunc("/presence", teamloftAPI.restHandler.HandlePresence)

	mux.HandleFunc("/ws", teamloftAPI.wsHandler.ServeWS)
}
