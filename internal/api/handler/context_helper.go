package handler

import (
	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/pkg/response"
)

// MustGetUserID 取 JWT 中间件注入的 user_id（人工改考勤的 marked_by）
// 缺失时已写入 401，调用方直接 return
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, _ := c.Get(key)
	if s, ok := v.(string); ok && s != "" {
		return s, true
	}
	response.Unauthorized(c, 10002, "未认证")
	return "", false
}
