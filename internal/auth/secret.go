package auth

import (
	"crypto/subtle"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// SecretHeader is the header a trigger may use instead of a bearer token.
const SecretHeader = "X-Sync-Secret"

var bearerPrefix = regexp.MustCompile(`(?i)^Bearer\s+`)

// SyncSecretMiddleware only lets requests through that present secret as a
// bearer token, in the X-Sync-Secret header or as the secret query
// parameter. Any one matching location is enough. With an empty secret
// every request is rejected.
func SyncSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Authorized(c.Request, secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// Authorized reports whether r carries secret in any accepted location.
func Authorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	candidates := []string{r.Header.Get(SecretHeader), r.URL.Query().Get("secret")}
	if authz := r.Header.Get("Authorization"); authz != "" {
		candidates = append(candidates, bearerPrefix.ReplaceAllString(authz, ""))
	}
	for _, candidate := range candidates {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1 {
			return true
		}
	}
	return false
}
