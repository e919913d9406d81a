package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/hellocounsel/reports-backend/internal/http/handlers"
	httpMW "github.com/hellocounsel/reports-backend/internal/http/middleware"
)

type RouterConfig struct {
	ReportHandler *httpH.ReportHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.AttachRequestID())
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.ReportHandler != nil {
			api.GET("/reports", cfg.ReportHandler.ListReports)
			api.GET("/reports/:date/:type", cfg.ReportHandler.GetReport)
			api.POST("/reports/daily", cfg.ReportHandler.GenerateDaily)
			api.POST("/reports/weekly", cfg.ReportHandler.GenerateWeekly)
			api.POST("/reports/:id/narrative", cfg.ReportHandler.AttachNarrative)
		}
	}

	return r
}
