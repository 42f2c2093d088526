package ports

import (
	"context"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

// AccountCreator is the terminal account-creation API.
// Structured failures are returned as *domain.CreationError.
type AccountCreator interface {
	CreateAccount(ctx context.Context, payload domain.AccountPayload) (domain.AccountResult, error)
}

// OtpGateway sends and checks one-time codes for a channel identifier
// (an email address or a phone number).
type OtpGateway interface {
	Send(ctx context.Context, channel domain.ChannelID, identifier string) error
	Verify(ctx context.Context, channel domain.ChannelID, identifier, code string) error
}

// CredentialDecoder turns an opaque OAuth credential into the identity it asserts.
type CredentialDecoder interface {
	Decode(ctx context.Context, rawCredential string) (domain.ExternalIdentity, error)
}

// Notifier surfaces banners. Implementations must not block the caller.
type Notifier interface {
	Announce(message string, severity domain.Severity)
}
