package api

import (
	"chat-relay/internal/config"
	"chat-relay/internal/queue"
	"chat-relay/internal/service"
	"chat-relay/internal/storage"
	"chat-relay/internal/tenant"
)

type API struct {
	Svc      *service.Service
	Store    *storage.Store
	Queue    *queue.Manager
	Registry *tenant.Registry
	Cfg      *config.Config
}

func NewAPI(svc *service.Service, store *storage.Store, q *queue.Manager, reg *tenant.Registry, cfg *config.Config) *API {
	return &API{
		Svc:      svc,
		Store:    store,
		Queue:    q,
		Registry: reg,
		Cfg:      cfg,
	}
}
