package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/service"
	pkgerrors "ficha-attendance/backend/pkg/errors"
	"ficha-attendance/backend/pkg/response"
)

// handleCommonError 处理跨模块共享的业务错误
// 已写入响应时返回 true，各模块的 handleXError 在 default 分支前调用
func handleCommonError(c *gin.Context, err error) bool {
	var conflictErr *service.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		response.Conflict(c, 20001, "排课冲突", gin.H{"conflicts": conflictErr.Conflicts})

	// 并发冲突：客户端可重试
	case errors.Is(err, pkgerrors.ErrConcurrencyConflict):
		response.ServiceUnavailable(c, 10006, "资源正被其他请求占用，请稍后重试")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10007, "数据已被其他操作修改，请刷新后重试", nil)

	// 主数据
	case errors.Is(err, service.ErrTrimesterNotFound):
		response.NotFound(c, 11001, "学季不存在或未启用")
	case errors.Is(err, service.ErrInstructorNotFound):
		response.NotFound(c, 11002, "讲师不存在或未启用")
	case errors.Is(err, service.ErrLearnerNotFound):
		response.NotFound(c, 11003, "学员不存在或未启用")
	case errors.Is(err, service.ErrProfileNotFound):
		response.NotFound(c, 11004, "人员档案不存在或未启用")
	case errors.Is(err, service.ErrCohortNotFound):
		response.NotFound(c, 11005, "ficha 不存在或未启用")
	case errors.Is(err, service.ErrClassroomNotFound):
		response.NotFound(c, 11006, "教室不存在或未启用")

	// 参数
	case errors.Is(err, service.ErrInvalidTimeWindow):
		response.BadRequest(c, 12001, "时间段无效：开始时间必须早于结束时间")
	case errors.Is(err, service.ErrInvalidDayOfWeek):
		response.BadRequest(c, 12002, "星期必须在 1-7 之间")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 12003, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 12004, "日期区间无效：开始日期不能晚于结束日期")
	case errors.Is(err, service.ErrDateRangeTooLarge):
		response.BadRequest(c, 12005, "日期区间超出允许范围")
	case errors.Is(err, service.ErrDateOutOfTrimester):
		response.BadRequest(c, 12006, "日期不在学季范围内")
	case errors.Is(err, service.ErrInvalidTolerance):
		response.BadRequest(c, 12007, "迟到容忍分钟数不能为负")
	default:
		return false
	}
	return true
}
