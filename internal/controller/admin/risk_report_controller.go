package admin

import (
	"net/http"
	"strconv"

	"github.com/examguard/examguard/internal/controller"
	"github.com/examguard/examguard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RiskReportController serves the triage queue, per-attempt risk assessments
// and the AI report screen.
type RiskReportController struct {
	risk    service.RiskScoringService
	reports service.IntegrityReportService
}

func NewRiskReportController(risk service.RiskScoringService, reports service.IntegrityReportService) *RiskReportController {
	return &RiskReportController{risk: risk, reports: reports}
}

// GetRiskAssessment godoc
// @Summary (Admin) Risk assessment for one attempt
// @Description Recomputed on demand from the proctor event log; deterministic for identical event counts.
// @Tags Admin - Integrity Risk
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.RiskAssessmentDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/risk [get]
func (c *RiskReportController) GetRiskAssessment(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	assessment, err := c.risk.GetRiskAssessment(attemptID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("GetRiskAssessment: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, assessment)
}

// GetTriageRecommendations godoc
// @Summary (Admin) Ranked triage queue of live sessions
// @Tags Admin - Integrity Risk
// @Produce json
// @Param top_n query int false "Number of sessions to return (default 10)"
// @Success 200 {array} dto.TriageRecommendationDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/triage [get]
func (c *RiskReportController) GetTriageRecommendations(ctx *gin.Context) {
	topN, _ := strconv.Atoi(ctx.DefaultQuery("top_n", "10"))
	recs, err := c.risk.GetTriageRecommendations(topN)
	if err != nil {
		log.Error().Err(err).Msg("GetTriageRecommendations: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, recs)
}

// GetIntegrityReport godoc
// @Summary (Admin) AI narrative report for one attempt
// @Description Assessment plus a short generated narrative; falls back to a deterministic summary without an AI backend.
// @Tags Admin - Integrity Risk
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.IntegrityReportDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/report [get]
func (c *RiskReportController) GetIntegrityReport(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	report, err := c.reports.GenerateReport(attemptID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("GetIntegrityReport: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}
