package admin

import (
	"net/http"
	"strconv"

	"github.com/examguard/examguard/internal/controller"
	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/examguard/examguard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AttemptControlController serves the exam-control screen: the live attempt
// list and the four administrative overrides.
type AttemptControlController struct {
	overrides service.OverrideLedgerService
	queries   service.AttemptQueryService
}

func NewAttemptControlController(overrides service.OverrideLedgerService, queries service.AttemptQueryService) *AttemptControlController {
	return &AttemptControlController{overrides: overrides, queries: queries}
}

// ListAttemptControl godoc
// @Summary (Admin) List attempts for the control screen
// @Description Paginated attempt list with remaining time and per-row capability flags.
// @Tags Admin - Attempt Control
// @Produce json
// @Param exam_id query int false "Filter by exam"
// @Param batch_id query int false "Filter by candidate scheduling batch"
// @Param status query string false "Filter by attempt status"
// @Param search query string false "Match candidate name or email"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.AttemptControlListDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/attempt-control [get]
func (c *AttemptControlController) ListAttemptControl(ctx *gin.Context) {
	var filter repository.AttemptControlFilter
	if raw := ctx.Query("exam_id"); raw != "" {
		val, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid exam_id format"})
			return
		}
		examID := uint(val)
		filter.ExamID = &examID
	}
	if raw := ctx.Query("batch_id"); raw != "" {
		val, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid batch_id format"})
			return
		}
		batchID := uint(val)
		filter.BatchID = &batchID
	}
	if raw := ctx.Query("status"); raw != "" {
		status := model.AttemptStatus(raw)
		filter.Status = &status
	}
	filter.Search = ctx.Query("search")
	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	list, err := c.queries.ListAttemptControl(filter)
	if err != nil {
		log.Error().Err(err).Msg("ListAttemptControl: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, list)
}

// ForceEndAttempt godoc
// @Summary (Admin) Force-end an attempt
// @Description Moves any non-terminal attempt to force_submitted. Already-terminal attempts return their current state unchanged.
// @Tags Admin - Attempt Control
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.ForceEndRequest true "Reason and idempotency key"
// @Success 200 {object} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/force-end [post]
func (c *AttemptControlController) ForceEndAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.ForceEndRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	summary, err := c.overrides.ForceEndAttempt(attemptID, req.Reason, controller.ActingAdmin(ctx), req.IdempotencyKey)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("ForceEndAttempt: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// TerminateAttempt godoc
// @Summary (Admin) Terminate an attempt for a proctoring violation
// @Description Same guards as force-end but records the terminated outcome; the reason is mandatory.
// @Tags Admin - Attempt Control
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.TerminateRequest true "Reason and idempotency key"
// @Success 200 {object} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/terminate [post]
func (c *AttemptControlController) TerminateAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.TerminateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	summary, err := c.overrides.TerminateAttempt(attemptID, req.Reason, controller.ActingAdmin(ctx), req.IdempotencyKey)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("TerminateAttempt: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// ResumeAttempt godoc
// @Summary (Admin) Resume a paused or stuck attempt
// @Tags Admin - Attempt Control
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.ResumeAttemptRequest true "Optional reason and idempotency key"
// @Success 200 {object} dto.RemainingTimeDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Attempt is not resumable"
// @Router /admin/attempts/{attempt_id}/resume [post]
func (c *AttemptControlController) ResumeAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.ResumeAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	remaining, err := c.overrides.ResumeAttempt(attemptID, req.Reason, controller.ActingAdmin(ctx), req.IdempotencyKey)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("ResumeAttempt: rejected")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, remaining)
}

// AddTimeToAttempt godoc
// @Summary (Admin) Grant extra time to an attempt
// @Description Adds between 1 and 480 minutes; the total only ever grows.
// @Tags Admin - Attempt Control
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.AddTimeRequest true "Minutes, reason, idempotency key"
// @Success 200 {object} dto.RemainingTimeDTO
// @Failure 400 {object} dto.ErrorResponse "Minutes out of range"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/add-time [post]
func (c *AttemptControlController) AddTimeToAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.AddTimeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	remaining, err := c.overrides.AddTimeToAttempt(attemptID, req.ExtraMinutes, req.Reason, controller.ActingAdmin(ctx), req.IdempotencyKey)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Int("extraMinutes", req.ExtraMinutes).Msg("AddTimeToAttempt: rejected")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, remaining)
}

// AllowNewAttempt godoc
// @Summary (Admin) Authorize one extra attempt for a candidate
// @Description Creates a one-shot grant letting the next start call bypass the attempt limit and the single-active-attempt rule.
// @Tags Admin - Attempt Control
// @Accept json
// @Produce json
// @Param body body dto.AllowNewAttemptRequest true "Candidate, exam, mandatory reason"
// @Success 201 {object} dto.OverrideGrantDTO
// @Failure 400 {object} dto.ErrorResponse "Missing reason"
// @Router /admin/allow-new-attempt [post]
func (c *AttemptControlController) AllowNewAttempt(ctx *gin.Context) {
	var req dto.AllowNewAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	grant, err := c.overrides.AllowNewAttempt(req.CandidateID, req.ExamID, req.Reason, controller.ActingAdmin(ctx), req.IdempotencyKey)
	if err != nil {
		log.Warn().Err(err).Uint("candidateID", req.CandidateID).Uint("examID", req.ExamID).Msg("AllowNewAttempt: rejected")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, grant)
}
