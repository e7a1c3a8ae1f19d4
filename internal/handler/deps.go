package handler

import (
	"github.com/mdmisri/mapfrens-backend/internal/app/hub"
	"github.com/mdmisri/mapfrens-backend/internal/configs"
)

type AppDeps struct {
	Hub    *hub.Hub
	Config *configs.AppConfig
}
