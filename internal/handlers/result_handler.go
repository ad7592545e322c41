package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oes-platform/exam-service/internal/services"
	"github.com/oes-platform/exam-service/internal/utils"
)

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
}

func NewResultHandler(resultService services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
	}
}

// GetResult looks up one result by its attempt id
func (h *ResultHandler) GetResult(c *gin.Context) {
	attemptID, ok := ParseStringIDParam(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.resultService.GetByAttemptID(c.Request.Context(), attemptID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Result retrieved", result)
}

// ListResults filters results by student and/or exam with optional
// ordering
func (h *ResultHandler) ListResults(c *gin.Context) {
	req := &services.ResultListRequest{
		OrderBy:   c.DefaultQuery("order_by", "submitted_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if studentID := c.Query("student_id"); studentID != "" {
		req.StudentID = &studentID
	}
	if examIDStr := c.Query("exam_id"); examIDStr != "" {
		examID, err := strconv.ParseUint(examIDStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid exam_id",
				Details: "must be a positive integer",
			})
			return
		}
		id := uint(examID)
		req.ExamID = &id
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid limit",
				Details: "must be an integer",
			})
			return
		}
		req.Limit = limit
	}

	results, err := h.resultService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Results retrieved", results)
}
