package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

func TestOtpClient_SendAndVerify(t *testing.T) {
	var paths []string
	var bodies []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewOtpClient(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, c.Send(context.Background(), domain.ChannelPhone, "9876543210"))
	require.NoError(t, c.Verify(context.Background(), domain.ChannelPhone, "9876543210", "123456"))

	assert.Equal(t, []string{"/otp/send", "/otp/verify"}, paths)
	assert.Equal(t, map[string]string{"channel": "phone", "identifier": "9876543210"}, bodies[0])
	assert.Equal(t, "123456", bodies[1]["code"])
}

func TestOtpClient_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantKind error
	}{
		{"wrong code", http.StatusBadRequest, `{"code":"invalid_code"}`, OtpInvalidCode, domain.ErrOtpRejected},
		{"expired", http.StatusGone, `{"code":"CODE_EXPIRED"}`, OtpExpiredCode, domain.ErrOtpRejected},
		{"rate limited without body", http.StatusTooManyRequests, ``, OtpRateLimited, domain.ErrOtpRateLimited},
		{"unexplained rejection", http.StatusBadRequest, `{}`, OtpInvalidCode, domain.ErrOtpRejected},
		{"server error", http.StatusInternalServerError, ``, OtpUnavailable, domain.ErrOtpUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOtpClient(srv.URL, WithHTTPClient(srv.Client()))
			err := c.Verify(context.Background(), domain.ChannelEmail, "a@b.co", "000000")

			var oe *OtpError
			require.True(t, errors.As(err, &oe), "got %v", err)
			assert.Equal(t, tt.wantCode, oe.Code)
			assert.NotEmpty(t, oe.UserMessage())
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestOtpClient_SendRejectionIsNotAWrongCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOtpClient(srv.URL, WithHTTPClient(srv.Client()))
	err := c.Send(context.Background(), domain.ChannelPhone, "9876543210")

	var oe *OtpError
	require.True(t, errors.As(err, &oe), "got %v", err)
	assert.Equal(t, OtpSendFailed, oe.Code)
	assert.NotContains(t, oe.UserMessage(), "code is not correct")
	assert.ErrorIs(t, err, domain.ErrOtpRejected)
}

func TestOtpError_UserMessageFallsBackToServerText(t *testing.T) {
	e := &OtpError{Code: "BLOCKED", Message: "Number is blocked"}
	assert.Equal(t, "Number is blocked", e.UserMessage())
	assert.Equal(t, "otp BLOCKED: Number is blocked", e.Error())
}
