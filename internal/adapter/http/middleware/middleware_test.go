package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeHTTPMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeHTTPMetrics) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method: method, route: route, status: status})
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxRequestID))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	generated := w.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "client-req-1")
	router.ServeHTTP(w, req)
	assert.Equal(t, "client-req-1", w.Body.String())
}

func TestRequestLogger_RecordsRouteTemplate(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	metrics := &fakeHTTPMetrics{}

	router := gin.New()
	router.Use(RequestID(), RequestLogger(log, metrics))
	router.GET("/wallets/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wallets/abc", nil))

	require.Len(t, metrics.requests, 1)
	assert.Equal(t, recordedRequest{method: "GET", route: "/wallets/:id", status: 404}, metrics.requests[0])

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/wallets/abc", entry["path"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRequestLogger_UnmatchedRouteAndNilMetrics(t *testing.T) {
	metrics := &fakeHTTPMetrics{}
	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop(), metrics))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, metrics.requests, 1)
	assert.Equal(t, "unmatched", metrics.requests[0].route)

	router = gin.New()
	router.Use(RequestLogger(zerolog.Nop(), nil))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_PanicRecovered(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_001", resp["error_code"])
	assert.NotContains(t, w.Body.String(), "something went wrong")
}

func TestActor_ResolvesHeaderIPAndAgent(t *testing.T) {
	userID := uuid.New()
	router := gin.New()
	router.Use(Actor())
	router.GET("/who", func(c *gin.Context) {
		a := ActorFrom(c)
		require.NotNil(t, a.UserID)
		assert.Equal(t, userID, *a.UserID)
		assert.Equal(t, "ledger-cli/1.0", a.UserAgent)
		assert.NotEmpty(t, a.IPAddress)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(HeaderActorID, userID.String())
	req.Header.Set("User-Agent", "ledger-cli/1.0")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestActorFrom_MalformedIDIsAnonymous(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set(HeaderActorID, "not-a-uuid")

	a := ActorFrom(c)
	assert.Nil(t, a.UserID)
}

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name     string
		limit    int64
		body     string
		wantCode int
	}{
		{"within limit", 1024, "hello world", http.StatusOK},
		{"exact limit", 5, "12345", http.StatusOK},
		{"exceeded", 16, strings.Repeat("A", 100), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(MaxBodySize(tt.limit))
			r.POST("/test", func(c *gin.Context) {
				if _, err := io.ReadAll(c.Request.Body); err != nil {
					c.String(http.StatusRequestEntityTooLarge, "too large")
					return
				}
				c.String(http.StatusOK, "ok")
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestMaxBodySize_NilBody(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodySize(8))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Body = nil
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
