package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func requireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		want, ok := sessionCSRFToken(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "csrf token missing, please sign in again"})
			c.Abort()
			return
		}

		got := strings.TrimSpace(c.GetHeader("X-CSRF-Token"))
		if got == "" {
			got = strings.TrimSpace(c.PostForm("_csrf"))
		}
		if got == "" || got != want {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid csrf token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAPISession 要求已登录；API 统一返回 {success:false} 而不是跳转。
func requireAPISession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sessionString(c, sessionTokenKey); !ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "not logged in"})
			c.Abort()
			return
		}
		c.Next()
	}
}
