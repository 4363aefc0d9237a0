package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/clock"
	"ficha-attendance/backend/pkg/response"
)

// AttendanceHandler 考勤记录 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	clock         clock.Clock
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, clk clock.Clock) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, clock: clk}
}

// GetSessionAttendance 课次考勤名单（先补齐默认缺勤）
// GET /api/v1/sessions/:id/attendance
func (h *AttendanceHandler) GetSessionAttendance(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 23000, "课次ID不能为空")
		return
	}

	result, err := h.attendanceSvc.ListBySession(c.Request.Context(), id)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// MarkAttendance 人工标记考勤，操作人取自 Token
// PUT /api/v1/sessions/:id/attendance/:learner_id
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	sessionID := c.Param("id")
	learnerID := c.Param("learner_id")
	if sessionID == "" || learnerID == "" {
		response.BadRequest(c, 23000, "课次ID与学员ID不能为空")
		return
	}

	var req dto.ManualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 23000, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.MarkManual(c.Request.Context(), sessionID, learnerID, &req, callerID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// GetCohortAttendance ficha 在日期区间内的考勤记录
// GET /api/v1/cohorts/:id/attendance?from=&to=
func (h *AttendanceHandler) GetCohortAttendance(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 23000, "ficha ID不能为空")
		return
	}

	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 23000, "from 与 to 不能为空")
		return
	}

	items, err := h.attendanceSvc.ListByCohort(c.Request.Context(), id, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// Sweep 立即执行一次当天默认缺勤补录
// POST /api/v1/attendance/sweep
func (h *AttendanceHandler) Sweep(c *gin.Context) {
	result, err := h.attendanceSvc.Sweep(c.Request.Context(), h.clock.Now())
	if err != nil && result == nil {
		h.handleAttendanceError(c, err)
		return
	}

	// 部分课次失败时仍返回汇总，failed 字段给出失败数
	response.OK(c, result)
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 23001, "考勤状态无效")
	case errors.Is(err, service.ErrLearnerNotInCohort):
		response.BadRequest(c, 23002, "学员不在该课次所属 ficha 名单中")
	case errors.Is(err, service.ErrMarkerRequired):
		response.BadRequest(c, 23003, "人工标记必须提供操作人")
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 23004, "考勤记录不存在")
	default:
		handleSessionError(c, err)
	}
}
