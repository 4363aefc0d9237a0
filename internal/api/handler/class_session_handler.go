package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/response"
)

// ClassSessionHandler 课次模块 HTTP 处理器
type ClassSessionHandler struct {
	sessionSvc service.ClassSessionService
}

// NewClassSessionHandler 创建 ClassSessionHandler
func NewClassSessionHandler(sessionSvc service.ClassSessionService) *ClassSessionHandler {
	return &ClassSessionHandler{sessionSvc: sessionSvc}
}

// CreateSession 新建临时课次
// POST /api/v1/sessions
func (h *ClassSessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21000, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// ListSessions 课次分页列表
// GET /api/v1/sessions?cohort_id=&instructor_id=&from=&to=&page=&page_size=
func (h *ClassSessionHandler) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 21000, "参数校验失败")
		return
	}

	page, err := h.sessionSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, page)
}

// DeactivateSession 停用课次（含冲突占用释放）
// PUT /api/v1/sessions/:id/deactivate
func (h *ClassSessionHandler) DeactivateSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 21000, "课次ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.Deactivate(c.Request.Context(), id, callerID); err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSessionError 课次相关错误，考勤与统计处理器共用
func handleSessionError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 21001, "课次不存在")
	case errors.Is(err, service.ErrSessionInactive):
		response.BadRequest(c, 21002, "课次已停用")
	default:
		response.InternalError(c)
	}
}
