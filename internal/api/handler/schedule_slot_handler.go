package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/response"
)

// ScheduleSlotHandler 周时段模块 HTTP 处理器
type ScheduleSlotHandler struct {
	slotSvc    service.ScheduleSlotService
	sessionSvc service.ClassSessionService
}

// NewScheduleSlotHandler 创建 ScheduleSlotHandler
func NewScheduleSlotHandler(slotSvc service.ScheduleSlotService, sessionSvc service.ClassSessionService) *ScheduleSlotHandler {
	return &ScheduleSlotHandler{slotSvc: slotSvc, sessionSvc: sessionSvc}
}

// CheckConflict 冲突预检（不落库）
// POST /api/v1/schedule-slots/conflict-check
func (h *ScheduleSlotHandler) CheckConflict(c *gin.Context) {
	var req dto.ScheduleSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20000, "参数校验失败")
		return
	}

	result, err := h.slotSvc.CheckConflict(c.Request.Context(), &req)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, result)
}

// CreateSlot 新建周时段
// POST /api/v1/schedule-slots
func (h *ScheduleSlotHandler) CreateSlot(c *gin.Context) {
	var req dto.ScheduleSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20000, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.slotSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.Created(c, slot)
}

// ListSlots 周时段列表
// GET /api/v1/schedule-slots?trimester_id=&cohort_id=&instructor_id=
func (h *ScheduleSlotHandler) ListSlots(c *gin.Context) {
	var req dto.ScheduleSlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20000, "参数校验失败")
		return
	}

	items, err := h.slotSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// DeactivateSlot 停用周时段
// DELETE /api/v1/schedule-slots/:id
func (h *ScheduleSlotHandler) DeactivateSlot(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 20000, "周时段ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.slotSvc.Deactivate(c.Request.Context(), id, callerID); err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, nil)
}

// GenerateSessions 按周时段展开课次
// POST /api/v1/schedule-slots/generate-sessions
func (h *ScheduleSlotHandler) GenerateSessions(c *gin.Context) {
	var req dto.GenerateSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20000, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.GenerateFromSlots(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *ScheduleSlotHandler) handleSlotError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 20002, "周时段不存在")
	default:
		response.InternalError(c)
	}
}
