package handler

import (
	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/response"
)

// StatsHandler 出勤统计 HTTP 处理器
type StatsHandler struct {
	statsSvc service.StatsService
}

// NewStatsHandler 创建 StatsHandler
func NewStatsHandler(statsSvc service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// GetSessionStats 单课次出勤统计
// GET /api/v1/sessions/:id/stats
func (h *StatsHandler) GetSessionStats(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 24000, "课次ID不能为空")
		return
	}

	stats, err := h.statsSvc.SessionStats(c.Request.Context(), id)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, stats)
}

// GetCohortStats ficha 区间出勤统计（整体 + 按学员）
// GET /api/v1/cohorts/:id/stats?from=&to=
func (h *StatsHandler) GetCohortStats(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 24000, "ficha ID不能为空")
		return
	}

	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 24000, "from 与 to 不能为空")
		return
	}

	stats, err := h.statsSvc.CohortStats(c.Request.Context(), id, &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, stats)
}
