package httpgin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONWithCache(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/thing", func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, gin.H{"hello": "world"}, "public, max-age=60", true)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thing", nil))

	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	// Revalidation with the same tag short-circuits to 304.
	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}
