package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

func newTraceEngine(seen *string, hasLogger *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Trace())
	r.GET("/ping", func(c *gin.Context) {
		*seen = c.GetString(TraceIDKey)
		*hasLogger = logger.WithContext(c.Request.Context()) != nil
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestTrace_EchoesIncomingID(t *testing.T) {
	var seen string
	var hasLogger bool
	r := newTraceEngine(&seen, &hasLogger)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-123", w.Header().Get(TraceIDHeader))
	assert.Equal(t, "trace-123", seen)
	assert.True(t, hasLogger)
}

func TestTrace_GeneratesID(t *testing.T) {
	var seen string
	var hasLogger bool
	r := newTraceEngine(&seen, &hasLogger)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	id := w.Header().Get(TraceIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, seen)
}

func TestTrace_ErrorStatusStillTagged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Trace())
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}
