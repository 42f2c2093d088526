package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/classroom/signup-engine/internal/config"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// OTP failure codes reported by the verification API.
const (
	OtpInvalidCode = "INVALID_CODE"
	OtpExpiredCode = "CODE_EXPIRED"
	OtpRateLimited = "RATE_LIMITED"
	OtpUnavailable = "UNAVAILABLE"
	OtpSendFailed  = "SEND_FAILED"
)

// OtpError is a send or verify failure with a message fit for the user.
type OtpError struct {
	Code    string
	Message string
}

func (e *OtpError) Error() string {
	if e.Message != "" {
		return "otp " + e.Code + ": " + e.Message
	}
	return "otp " + e.Code
}

func (e *OtpError) UserMessage() string {
	switch e.Code {
	case OtpInvalidCode:
		return "That code is not correct. Check it and try again."
	case OtpExpiredCode:
		return "That code has expired. Request a new one."
	case OtpRateLimited:
		return "Too many attempts. Wait a moment and try again."
	case OtpUnavailable:
		return "Verification is unavailable right now. Please try again shortly."
	case OtpSendFailed:
		if e.Message == "" {
			return "We could not send the code. Check the address and try again."
		}
	}
	return e.Message
}

// Unwrap classifies the failure for callers that only know the core errors.
func (e *OtpError) Unwrap() error {
	switch e.Code {
	case OtpRateLimited:
		return domain.ErrOtpRateLimited
	case OtpUnavailable:
		return domain.ErrOtpUnavailable
	}
	return domain.ErrOtpRejected
}

// OtpClient talks to the one-time code API.
type OtpClient struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

var _ ports.OtpGateway = (*OtpClient)(nil)

func NewOtpClient(baseURL string, opts ...Option) *OtpClient {
	o := buildOptions(opts)
	return &OtpClient{
		baseURL: baseURL,
		http:    o.httpClient,
		cb:      config.NewCircuitBreaker("OTP-API"),
	}
}

type otpSendRequest struct {
	Channel    domain.ChannelID `json:"channel"`
	Identifier string           `json:"identifier"`
}

type otpVerifyRequest struct {
	Channel    domain.ChannelID `json:"channel"`
	Identifier string           `json:"identifier"`
	Code       string           `json:"code"`
}

func (c *OtpClient) Send(ctx context.Context, channel domain.ChannelID, identifier string) error {
	return c.call(ctx, "/otp/send", otpSendRequest{Channel: channel, Identifier: identifier}, OtpSendFailed)
}

func (c *OtpClient) Verify(ctx context.Context, channel domain.ChannelID, identifier, code string) error {
	return c.call(ctx, "/otp/verify", otpVerifyRequest{Channel: channel, Identifier: identifier, Code: code}, OtpInvalidCode)
}

// call posts body to path. Rejections without a code get fallbackCode.
func (c *OtpClient) call(ctx context.Context, path string, body any, fallbackCode string) error {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return postJSON(ctx, c.http, joinURL(c.baseURL, path), body)
	})
	if err != nil {
		var se *serverError
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || errors.As(err, &se) {
			return &OtpError{Code: OtpUnavailable}
		}
		return fmt.Errorf("otp %s: %w", path, err)
	}

	resp := res.(response)
	if resp.status >= 200 && resp.status < 300 {
		return nil
	}
	f := decodeFailure(resp.body)
	if f.Code == "" && resp.status == http.StatusTooManyRequests {
		f.Code = OtpRateLimited
	}
	if f.Code == "" {
		f.Code = fallbackCode
	}
	return &OtpError{Code: f.Code, Message: f.Message}
}
