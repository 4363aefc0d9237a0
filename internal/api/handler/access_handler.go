package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/response"
)

// AccessHandler 门禁事件 HTTP 处理器
type AccessHandler struct {
	accessSvc service.AccessService
}

// NewAccessHandler 创建 AccessHandler
func NewAccessHandler(accessSvc service.AccessService) *AccessHandler {
	return &AccessHandler{accessSvc: accessSvc}
}

// CheckIn 入门刷卡，返回匹配结果
// 未匹配到课次不是错误，响应 200 且 matched=false
// POST /api/v1/access/check-in
func (h *AccessHandler) CheckIn(c *gin.Context) {
	var req dto.AccessEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22000, "参数校验失败")
		return
	}

	outcome, err := h.accessSvc.CheckIn(c.Request.Context(), &req)
	if err != nil {
		h.handleAccessError(c, err)
		return
	}

	response.OK(c, outcome)
}

// CheckOut 出门刷卡，仅记录事件
// POST /api/v1/access/check-out
func (h *AccessHandler) CheckOut(c *gin.Context) {
	var req dto.AccessEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22000, "参数校验失败")
		return
	}

	event, err := h.accessSvc.CheckOut(c.Request.Context(), &req)
	if err != nil {
		h.handleAccessError(c, err)
		return
	}

	response.OK(c, event)
}

func (h *AccessHandler) handleAccessError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrEventIDReused):
		response.Conflict(c, 22001, "event_id 已被其他事件使用", nil)
	case errors.Is(err, service.ErrNotEntryEvent):
		response.BadRequest(c, 22002, "只有入门事件可以匹配考勤")
	default:
		response.InternalError(c)
	}
}
