package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oes-platform/exam-service/internal/services"
	"github.com/oes-platform/exam-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

// GetLeaderboard returns the top results, globally or per exam
// (?exam_id=N), capped by ?limit=N
func (h *DashboardHandler) GetLeaderboard(c *gin.Context) {
	var examID *uint
	if examIDStr := c.Query("exam_id"); examIDStr != "" {
		parsed, err := strconv.ParseUint(examIDStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid exam_id",
				Details: "must be a positive integer",
			})
			return
		}
		id := uint(parsed)
		examID = &id
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rows, err := h.dashboardService.Leaderboard(c.Request.Context(), examID, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Leaderboard retrieved", rows)
}

// GetStudentHistory returns the caller's attempts grouped by exam
func (h *DashboardHandler) GetStudentHistory(c *gin.Context) {
	studentID, ok := ParseStringIDParam(c, "student_id")
	if !ok {
		return
	}

	histories, err := h.dashboardService.StudentHistory(c.Request.Context(), studentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "History retrieved", histories)
}

// GetExamAnalytics aggregates attempt statistics for one exam
func (h *DashboardHandler) GetExamAnalytics(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	analytics, err := h.dashboardService.Analytics(c.Request.Context(), examID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Analytics retrieved", analytics)
}

// GetOverview returns platform-wide entity counts
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	overview, err := h.dashboardService.Overview(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Overview retrieved", overview)
}

// ExportExamResults streams an xlsx workbook of one exam's results
func (h *DashboardHandler) ExportExamResults(c *gin.Context) {
	h.LogRequest(c, "Exporting exam results")

	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	data, err := h.dashboardService.ExportExamResults(c.Request.Context(), examID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("exam-%d-results-%s.xlsx", examID, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
