package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/response"
)

// 请求结构体字段 → JSON 字段名与提示
var configFieldMessages = map[string]struct {
	json string
	msg  string
}{
	"DefaultToleranceMinutes":   {service.ConfigFieldDefaultTolerance, "迟到容忍须在 0-240 分钟之间"},
	"EarlyArrivalMarginMinutes": {service.ConfigFieldEarlyArrival, "提前到达余量须在 0-240 分钟之间"},
	"ExcusedCountsAsAttended":   {"excused_counts_as_attended", "须为布尔值"},
}

// SystemConfigHandler 考勤规则配置 HTTP 处理器
type SystemConfigHandler struct {
	configSvc service.SystemConfigService
}

// NewSystemConfigHandler 创建 SystemConfigHandler
func NewSystemConfigHandler(configSvc service.SystemConfigService) *SystemConfigHandler {
	return &SystemConfigHandler{configSvc: configSvc}
}

// GetConfig 当前考勤规则：默认迟到容忍、提前到达余量、请假是否计入出勤
// GET /api/v1/system-config
func (h *SystemConfigHandler) GetConfig(c *gin.Context) {
	cfg, err := h.configSvc.Get(c.Request.Context())
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, cfg)
}

// UpdateConfig 部分更新考勤规则，只影响此后新建的时段与课次
// PUT /api/v1/system-config
func (h *SystemConfigHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateSystemConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := configBindErrors(err); len(fields) > 0 {
			response.ErrorWithData(c, http.StatusBadRequest, 17001, "系统配置值无效", gin.H{"fields": fields})
			return
		}
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cfg, err := h.configSvc.Update(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, cfg)
}

// configBindErrors 把绑定错误展开为 {json 字段: 提示}；无法定位到字段时返回 nil
func configBindErrors(err error) map[string]string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			if m, ok := configFieldMessages[fe.Field()]; ok {
				fields[m.json] = m.msg
			}
		}
		return fields
	}

	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		for _, m := range configFieldMessages {
			if m.json == te.Field {
				return map[string]string{m.json: m.msg}
			}
		}
	}
	return nil
}

// handleConfigError 统一处理系统配置模块业务错误
func (h *SystemConfigHandler) handleConfigError(c *gin.Context, err error) {
	var fe *service.ConfigFieldError
	switch {
	case errors.As(err, &fe):
		msg := fe.Error()
		for _, m := range configFieldMessages {
			if m.json == fe.Field {
				msg = m.msg
			}
		}
		response.ErrorWithData(c, http.StatusBadRequest, 17001, "系统配置值无效", gin.H{"fields": map[string]string{fe.Field: msg}})
	case errors.Is(err, service.ErrInvalidSystemConfig):
		response.BadRequest(c, 17001, "系统配置值无效")
	case errors.Is(err, service.ErrEmptyConfigUpdate):
		response.BadRequest(c, 17002, "未提供需要更新的配置项")
	default:
		response.InternalError(c)
	}
}
