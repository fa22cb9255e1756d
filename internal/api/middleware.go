package api

import (
	"net/http"
	"strings"

	"github.com/annel0/al-spectator/internal/auth"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// corsMiddleware открывает API и /ws для страниц с других источников;
// preflight-запросы завершаются сразу
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Signature")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// jwtMiddleware проверяет JWT токен в заголовке Authorization.
// При выключенной проверке пропускает всех.
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rs.requireToken {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			fail(c, http.StatusUnauthorized, "Отсутствует токен авторизации")
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			fail(c, http.StatusUnauthorized, "Неверный формат токена")
			return
		}

		claims, err := auth.ValidateJWT(parts[1])
		if err != nil {
			fail(c, http.StatusUnauthorized, "Недействительный токен")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// roleMiddleware требует роль, установленную в jwtMiddleware
func (rs *RestServer) roleMiddleware(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rs.requireToken {
			c.Next()
			return
		}

		v, exists := c.Get(claimsKey)
		if !exists {
			fail(c, http.StatusInternalServerError, "Отсутствует информация о клиенте")
			return
		}
		if claims, ok := v.(*auth.Claims); !ok || !claims.HasRole(role) {
			fail(c, http.StatusForbidden, "Недостаточно прав доступа")
			return
		}

		c.Next()
	}
}
