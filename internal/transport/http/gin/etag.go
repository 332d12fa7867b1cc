package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/meetly/internal/entitycache"
)

const headerCacheState = "X-Cache-State"

// writeJSONWithETag writes v with a weak ETag and answers 304 when the client
// already holds the same representation. Session data is never shared, so
// responses are marked private.
func writeJSONWithETag(c *gin.Context, status int, v any, maxAge string) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	sum := sha256.Sum256(b)
	tag := `W/"` + hex.EncodeToString(sum[:16]) + `"`

	c.Header("ETag", tag)
	c.Header("Cache-Control", "private, max-age="+maxAge)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(status, "application/json; charset=utf-8", b)
}

// writeEntry writes a cache entry together with its state so the screen can
// tell fresh data from data that is being revalidated.
func writeEntry(c *gin.Context, state entitycache.State, v any, maxAge string) {
	c.Header(headerCacheState, string(state))
	writeJSONWithETag(c, http.StatusOK, v, maxAge)
}
