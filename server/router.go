package server

import (
	"net/http"

	"gambit/server/domain"
	"gambit/server/handler"
)

func Route(secret []byte, pubsub domain.PubSub, manager *domain.SessionManager) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(secret, pubsub, manager))
	mux.Handle("/healthz", handler.NewHealthHandler())
	return mux
}
