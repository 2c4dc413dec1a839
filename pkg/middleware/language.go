package middleware

import (
	"github.com/gin-gonic/gin"
)

// LanguageMiddleware 解析请求语言并写入上下文，供提示文案本地化
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 语言来自查询参数，无效值回退到英文
		lang := c.DefaultQuery("lang", "en")
		if lang != "en" && lang != "zh" {
			lang = "en"
		}
		c.Set("lang", lang)
		c.Next()
	}
}
