package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oes-platform/exam-service/internal/services"
	"github.com/oes-platform/exam-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

type selectExamRequest struct {
	ExamID uint `json:"exam_id" binding:"required"`
}

// SelectExam opens a fresh attempt session for an active exam
func (h *AttemptHandler) SelectExam(c *gin.Context) {
	h.LogRequest(c, "Selecting exam")

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	var req selectExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.attemptService.Select(c.Request.Context(), userID, req.ExamID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Exam selected", view)
}

// StartAttempt freezes the question snapshot and starts the countdown
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting attempt")

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	view, err := h.attemptService.Start(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempt started", view)
}

type saveAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

// SaveAnswer captures or overwrites the answer for one question
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	var req saveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.attemptService.SaveAnswer(c.Request.Context(), userID, req.QuestionID, req.Answer)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Answer saved", view)
}

// GetProgress reports the attempt view with the remaining time
func (h *AttemptHandler) GetProgress(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	view, err := h.attemptService.Progress(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempt progress", view)
}

// SubmitAttempt grades the captured answers and persists the result
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	h.LogRequest(c, "Submitting attempt")

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempt submitted", result)
}

// AbandonAttempt discards the live session without grading
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	h.LogRequest(c, "Abandoning attempt")

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempt abandoned", nil)
}
