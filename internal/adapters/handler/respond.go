package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/services"
)

type errorResponse struct {
	Error    string             `json:"error"`
	Snapshot *services.Snapshot `json:"snapshot,omitempty"`
}

type userMessenger interface {
	UserMessage() string
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error, snap *services.Snapshot) {
	status, msg := statusFor(err)
	writeJSON(w, status, errorResponse{Error: msg, Snapshot: snap})
}

// statusFor maps core errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	display := func() string {
		var um userMessenger
		if errors.As(err, &um) && um.UserMessage() != "" {
			return um.UserMessage()
		}
		return err.Error()
	}

	var ce *domain.CreationError
	if errors.As(err, &ce) {
		switch ce.Code {
		case domain.CreationEmailTaken:
			return http.StatusConflict, ce.UserMessage()
		case domain.CreationUnavailable:
			return http.StatusServiceUnavailable, ce.UserMessage()
		default:
			return http.StatusUnprocessableEntity, ce.UserMessage()
		}
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone, err.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrCooldownActive):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrOtpRejected):
		return http.StatusUnprocessableEntity, display()
	case errors.Is(err, domain.ErrOtpRateLimited):
		return http.StatusTooManyRequests, display()
	case errors.Is(err, domain.ErrOtpUnavailable):
		return http.StatusServiceUnavailable, display()
	case errors.Is(err, domain.ErrNoDraft):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrDecode):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrInvalidPhase),
		errors.Is(err, domain.ErrFieldsFrozen),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrVerificationRequired),
		errors.Is(err, domain.ErrContactVerified),
		errors.Is(err, domain.ErrStaleResult):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrRoleRequired),
		errors.Is(err, domain.ErrUnknownRole),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrUnknownChannel),
		errors.Is(err, domain.ErrIncompleteCode),
		errors.Is(err, domain.ErrMissingIdentifier),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	}

	var um userMessenger
	if errors.As(err, &um) && um.UserMessage() != "" {
		return http.StatusBadGateway, display()
	}
	return http.StatusInternalServerError, "internal error"
}
