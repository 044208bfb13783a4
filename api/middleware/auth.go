package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cfmarkdown/models"
)

// AccessKeyHeader carries the mediator access key sent by client.WithAccessKey.
const AccessKeyHeader = "X-API-Key"

const (
	msgMissingAccessKey = "missing access key: provide X-API-Key header or Authorization: Bearer <key>"
	msgInvalidAccessKey = "invalid access key"
)

// Auth gates /api/scrape behind the operator's access keys so a public
// deployment does not relay rendering calls for anyone who finds it. It is
// unrelated to the Cloudflare token, which rides in the body and is judged by
// the provider. A bearer token is accepted as an alternative to
// AccessKeyHeader. With no keys configured every request passes.
func Auth(accessKeys []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(accessKeys))
	for _, k := range accessKeys {
		if k != "" {
			allowed[k] = true
		}
	}
	if len(allowed) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		switch key := accessKey(c); {
		case key == "":
			deny(c, msgMissingAccessKey)
		case !allowed[key]:
			deny(c, msgInvalidAccessKey)
		default:
			c.Next()
		}
	}
}

func accessKey(c *gin.Context) string {
	if key := c.GetHeader(AccessKeyHeader); key != "" {
		return key
	}
	if key, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return key
	}
	return ""
}

func deny(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ScrapeResponse{Error: msg})
}
