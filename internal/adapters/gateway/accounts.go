package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/classroom/signup-engine/internal/config"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// AccountClient calls the account API's create endpoint.
type AccountClient struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

var _ ports.AccountCreator = (*AccountClient)(nil)

func NewAccountClient(baseURL string, opts ...Option) *AccountClient {
	o := buildOptions(opts)
	return &AccountClient{
		baseURL: baseURL,
		http:    o.httpClient,
		cb:      config.NewCircuitBreaker("Account-API"),
	}
}

func (c *AccountClient) CreateAccount(ctx context.Context, payload domain.AccountPayload) (domain.AccountResult, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return postJSON(ctx, c.http, joinURL(c.baseURL, "/accounts"), payload)
	})
	if err != nil {
		var se *serverError
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || errors.As(err, &se) {
			return domain.AccountResult{}, &domain.CreationError{Code: domain.CreationUnavailable}
		}
		return domain.AccountResult{}, fmt.Errorf("create account: %w", err)
	}

	resp := res.(response)
	switch {
	case resp.status == http.StatusOK || resp.status == http.StatusCreated:
		var out domain.AccountResult
		if err := json.Unmarshal(resp.body, &out); err != nil {
			return domain.AccountResult{}, fmt.Errorf("decode account result: %w", err)
		}
		return out, nil
	case resp.status == http.StatusConflict:
		f := decodeFailure(resp.body)
		return domain.AccountResult{}, &domain.CreationError{Code: domain.CreationEmailTaken, Message: f.Message}
	default:
		return domain.AccountResult{}, creationError(resp.body)
	}
}

func creationError(body []byte) *domain.CreationError {
	f := decodeFailure(body)
	switch domain.CreationCode(f.Code) {
	case domain.CreationInviteInvalid, domain.CreationEmailTaken, domain.CreationRejected:
		return &domain.CreationError{Code: domain.CreationCode(f.Code), Message: f.Message}
	}
	return &domain.CreationError{Code: domain.CreationRejected, Message: f.Message}
}
