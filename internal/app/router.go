package app

import (
	internalhttp "github.com/hellocounsel/reports-backend/internal/http"
)

func wireRouter(handlerset Handlers) *internalhttp.Server {
	return internalhttp.NewServer(internalhttp.RouterConfig{
		ReportHandler: handlerset.Report,
		HealthHandler: handlerset.Health,
	})
}
