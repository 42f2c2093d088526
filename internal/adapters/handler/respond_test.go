package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/gateway"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"closed session", domain.ErrSessionClosed, http.StatusGone},
		{"result dropped by a reset", fmt.Errorf("send: %w", domain.ErrStaleResult), http.StatusConflict},
		{"verified contact edit", fmt.Errorf("change email: %w", domain.ErrContactVerified), http.StatusConflict},
		{"wrong code", fmt.Errorf("verify email code: %w", &gateway.OtpError{Code: gateway.OtpInvalidCode}), http.StatusUnprocessableEntity},
		{"send rejected", &gateway.OtpError{Code: gateway.OtpSendFailed}, http.StatusUnprocessableEntity},
		{"otp rate limited", &gateway.OtpError{Code: gateway.OtpRateLimited}, http.StatusTooManyRequests},
		{"otp unavailable", &gateway.OtpError{Code: gateway.OtpUnavailable}, http.StatusServiceUnavailable},
		{"cooldown", domain.ErrCooldownActive, http.StatusTooManyRequests},
		{"email taken", &domain.CreationError{Code: domain.CreationEmailTaken}, http.StatusConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := statusFor(tt.err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, msg)
		})
	}
}
