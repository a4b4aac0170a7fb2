package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(requestID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if requestID != "" {
		c.Set("request_id", requestID)
	}
	return c, w
}

func TestSuccessEnvelopes(t *testing.T) {
	tests := []struct {
		name       string
		write      func(*gin.Context, interface{})
		wantStatus int
		wantHeader string
	}{
		{"ok", OK, http.StatusOK, ""},
		{"created", Created, http.StatusCreated, ""},
		{"replayed", Replayed, http.StatusOK, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext("req-" + tt.name)

			tt.write(c, map[string]string{"reference": "WTX-1"})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantHeader, w.Header().Get(HeaderReplayed))

			var resp SuccessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "req-"+tt.name, resp.RequestID)
			assert.NotEmpty(t, resp.Timestamp)
			data, ok := resp.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "WTX-1", data["reference"])
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantRetryable bool
		hidden        string
	}{
		{
			name:       "app error",
			err:        apperror.ErrInsufficientBalance(100, 5000),
			wantStatus: http.StatusPaymentRequired,
			wantCode:   "LED_001",
		},
		{
			name:          "wrapped retryable",
			err:           fmt.Errorf("outer: %w", apperror.ErrLockTimeout(fmt.Errorf("55P03"))),
			wantStatus:    http.StatusServiceUnavailable,
			wantCode:      "SYS_002",
			wantRetryable: true,
			hidden:        "55P03",
		},
		{
			name:       "unknown",
			err:        fmt.Errorf("pq: relation wallets does not exist"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "SYS_000",
			hidden:     "relation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext("req-err")

			Error(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.ErrorCode)
			assert.Equal(t, tt.wantRetryable, resp.Retryable)
			assert.Equal(t, "req-err", resp.RequestID)
			if tt.hidden != "" {
				assert.NotContains(t, w.Body.String(), tt.hidden)
			}
		})
	}
}

func TestError_CarriesDetails(t *testing.T) {
	c, w := newContext("")

	Error(c, apperror.ErrInsufficientBalance(100, 5000))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Insufficient balance in wallet", resp.Message)
	assert.Equal(t, float64(4900), resp.Details["shortfall"])
}

func TestOK_GeneratesRequestID_WhenMissing(t *testing.T) {
	c, w := newContext("")

	OK(c, nil)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID, "should generate a UUID when request_id is missing")
}
