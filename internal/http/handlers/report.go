package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hellocounsel/reports-backend/internal/http/response"
	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/repos"
	"github.com/hellocounsel/reports-backend/internal/services"
	"github.com/hellocounsel/reports-backend/internal/types"
)

const defaultEnvironment = "production"

type ReportHandler struct {
	reports   services.ReportService
	narrative services.NarrativeService
	log       *logger.Logger
}

func NewReportHandler(reports services.ReportService, narrative services.NarrativeService, baseLog *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		narrative: narrative,
		log:       baseLog.With("handler", "ReportHandler"),
	}
}

func environmentOf(c *gin.Context) string {
	env := strings.TrimSpace(c.Query("e"))
	if env == "" {
		return defaultEnvironment
	}
	return env
}

type listResponse struct {
	Reports []types.Report `json:"reports"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

func (h *ReportHandler) ListReports(c *gin.Context) {
	filter := repos.ListFilter{
		ReportType: c.Query("type"),
		FirmID:     c.Query("firmId"),
		From:       c.Query("from"),
		To:         c.Query("to"),
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, total, err := h.reports.ListReports(c.Request.Context(), environmentOf(c),
		filter, c.Query("sort"), c.Query("order"), limit, offset)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, listResponse{Reports: rows, Total: total, Limit: limit, Offset: offset})
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	date := c.Param("date")
	reportType := c.Param("type")
	if !types.ValidReportType(reportType) {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest,
			apierr.BadRequest("unknown report type %q", reportType))
		return
	}

	report, err := h.reports.GetReport(c.Request.Context(), environmentOf(c), date, reportType)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	if report == nil {
		response.RespondError(c, http.StatusNotFound, apierr.CodeNotFound,
			apierr.NotFound("no %s report for %s", reportType, date))
		return
	}
	response.RespondOK(c, report)
}

type generateDailyRequest struct {
	Date        string `json:"date" binding:"required"`
	Environment string `json:"environment"`
	TriggerType string `json:"triggerType"`
}

func (h *ReportHandler) GenerateDaily(c *gin.Context) {
	var req generateDailyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	env := req.Environment
	if env == "" {
		env = environmentOf(c)
	}

	report, err := h.reports.GenerateDaily(c.Request.Context(), env, req.Date, req.TriggerType)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, report)
}

type generateWeeklyRequest struct {
	WeekDate string  `json:"weekDate" binding:"required"`
	FirmID   *string `json:"firmId"`
}

func (h *ReportHandler) GenerateWeekly(c *gin.Context) {
	var req generateWeeklyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}

	report, err := h.reports.GenerateWeekly(c.Request.Context(), environmentOf(c), req.WeekDate, req.FirmID)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, report)
}

type attachNarrativeRequest struct {
	ReportTypes []string `json:"reportTypes" binding:"required"`
}

// AttachNarrative runs narrative generation for each requested type and
// returns a tagged result per type; one failing type never aborts its
// siblings.
func (h *ReportHandler) AttachNarrative(c *gin.Context) {
	var req attachNarrativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	reportID := c.Param("id")
	env := environmentOf(c)

	results := make([]services.AttachResult, 0, len(req.ReportTypes))
	for _, reportType := range req.ReportTypes {
		results = append(results, h.narrative.Attach(c.Request.Context(), env, reportID, reportType))
	}
	response.RespondOK(c, gin.H{"results": results})
}
