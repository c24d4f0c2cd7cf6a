package user

import (
	"net/http"
	"time"

	"github.com/examguard/examguard/internal/controller"
	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AttemptSessionController is the candidate-facing surface of a running exam
// session: start, liveness, pause, submit, and the proctor event intake used
// by the capture client.
type AttemptSessionController struct {
	lifecycle service.AttemptLifecycleService
	queries   service.AttemptQueryService
	events    service.ProctorEventService
}

func NewAttemptSessionController(
	lifecycle service.AttemptLifecycleService,
	queries service.AttemptQueryService,
	events service.ProctorEventService,
) *AttemptSessionController {
	return &AttemptSessionController{lifecycle: lifecycle, queries: queries, events: events}
}

// StartAttempt godoc
// @Summary (Candidate) Start a timed attempt
// @Description Rejected outside the exam window, past the attempt limit, or while another attempt is live, unless an unconsumed allow-new-attempt grant exists.
// @Tags Candidate - Session
// @Accept json
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Param body body dto.StartAttemptRequest true "Candidate ID"
// @Success 201 {object} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse "Exam not found"
// @Failure 409 {object} dto.ErrorResponse "Window closed, limit reached, or attempt already live"
// @Router /exams/{exam_id}/attempts [post]
func (c *AttemptSessionController) StartAttempt(ctx *gin.Context) {
	examID, ok := controller.ParseUintParam(ctx, "exam_id")
	if !ok {
		return
	}
	var req dto.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	attempt, err := c.lifecycle.Start(examID, req.CandidateID, time.Now())
	if err != nil {
		log.Warn().Err(err).Uint("examID", examID).Uint("candidateID", req.CandidateID).Msg("StartAttempt: rejected")
		controller.RespondError(ctx, err)
		return
	}
	summary, err := c.queries.GetAttemptSummary(attempt.ID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, summary)
}

// GetAttempt godoc
// @Summary (Candidate) Attempt detail with remaining time
// @Tags Candidate - Session
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id} [get]
func (c *AttemptSessionController) GetAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	summary, err := c.queries.GetAttemptSummary(attemptID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// Heartbeat godoc
// @Summary (Candidate) Session liveness ping
// @Description Records last activity; out-of-order timestamps are discarded. Never changes the attempt status.
// @Tags Candidate - Session
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.HeartbeatRequest false "Optional client timestamp"
// @Success 200 {object} dto.RemainingTimeDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Attempt already terminal"
// @Router /attempts/{attempt_id}/heartbeat [post]
func (c *AttemptSessionController) Heartbeat(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.HeartbeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && ctx.Request.ContentLength > 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}
	if _, err := c.lifecycle.Heartbeat(attemptID, at); err != nil {
		controller.RespondError(ctx, err)
		return
	}
	summary, err := c.queries.GetAttemptSummary(attemptID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.RemainingTimeDTO{
		AttemptID:        attemptID,
		RemainingSeconds: summary.RemainingSeconds,
		ComputedAt:       summary.ComputedAt,
	})
}

// PauseAttempt godoc
// @Summary (Candidate) Pause a running attempt
// @Tags Candidate - Session
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Not pausable from the current status"
// @Router /attempts/{attempt_id}/pause [post]
func (c *AttemptSessionController) PauseAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	if _, err := c.lifecycle.Pause(attemptID, time.Now()); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("PauseAttempt: rejected")
		controller.RespondError(ctx, err)
		return
	}
	summary, err := c.queries.GetAttemptSummary(attemptID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// SubmitAttempt godoc
// @Summary (Candidate) Submit and finish the attempt
// @Tags Candidate - Session
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Not submittable from the current status"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptSessionController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	if _, err := c.lifecycle.Submit(attemptID, time.Now()); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("SubmitAttempt: rejected")
		controller.RespondError(ctx, err)
		return
	}
	summary, err := c.queries.GetAttemptSummary(attemptID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// IngestProctorEvents godoc
// @Summary (Capture client) Append integrity events for an attempt
// @Description Batch intake from the proctoring capture pipeline. Unknown event codes reject the batch.
// @Tags Candidate - Session
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.ProctorEventBatchRequest true "Event batch"
// @Success 202 {object} map[string]int
// @Failure 400 {object} dto.ErrorResponse "Unknown event code"
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id}/events [post]
func (c *AttemptSessionController) IngestProctorEvents(ctx *gin.Context) {
	attemptID, ok := controller.ParseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.ProctorEventBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	accepted, err := c.events.Ingest(attemptID, req.Events)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("IngestProctorEvents: rejected")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
}
