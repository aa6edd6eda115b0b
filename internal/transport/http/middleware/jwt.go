package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marvel-rag/internal/pkg/jwtutil"
	"marvel-rag/internal/transport/http/response"
)

// ContextSubjectKey holds the token subject of an authenticated request.
const ContextSubjectKey = "subject"

// AuthJWT guards write routes with an HS256 bearer token. An empty secret
// leaves the route open, which is the default for local runs.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing or malformed bearer token")
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, message string) {
	response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, message)
}
