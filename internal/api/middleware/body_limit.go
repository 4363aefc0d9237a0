package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 声明了超限 Content-Length 的请求直接 413；未声明长度的请求体读到上限后报错，由绑定层返回 400
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.PayloadTooLarge(c, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
