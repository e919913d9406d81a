package app

import (
	httpH "github.com/hellocounsel/reports-backend/internal/http/handlers"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
)

type Handlers struct {
	Report *httpH.ReportHandler
	Health *httpH.HealthHandler
}

func wireHandlers(serviceset Services, log *logger.Logger) Handlers {
	return Handlers{
		Report: httpH.NewReportHandler(serviceset.Reports, serviceset.Narrative, log),
		Health: httpH.NewHealthHandler(),
	}
}
