package app

import (
	"github.com/Fleezyflo/moh-time-os-sub004/internal/middleware"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, cfg.JWTSecretKey, s.Policy),
	}
}
