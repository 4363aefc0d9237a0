package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAttendance 导出 ficha 考勤表
// GET /api/v1/export/attendance?cohort_id=&from=&to=
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	var req dto.ExportAttendanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 25000, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportAttendance(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, contentTypeXLSX, filename, buf.Bytes())
}

// ExportCalendar 导出周课表 ICS
// GET /api/v1/export/calendar?trimester_id=&cohort_id=|instructor_id=
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var req dto.ExportCalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 25000, "参数校验失败")
		return
	}

	data, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, contentTypeICS, filename, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoSessions):
		response.NotFound(c, 25001, "所选区间内没有课次")
	case errors.Is(err, service.ErrCalendarOwnerRequired):
		response.BadRequest(c, 25002, "cohort_id 与 instructor_id 必须且只能提供一个")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
