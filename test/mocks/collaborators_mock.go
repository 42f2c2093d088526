// Package mocks provides in-memory implementations of the core ports for tests.
// Each mock records its calls and supports error injection.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

var ErrWrongCode = fmt.Errorf("wrong code: %w", domain.ErrOtpRejected)

// MockAccountCreator implements ports.AccountCreator.
type MockAccountCreator struct {
	mu sync.Mutex

	Calls  []domain.AccountPayload
	Result domain.AccountResult

	// Error injection
	CreateError error

	// Hook, when set, replaces the canned result. Use it to block or to
	// interleave other operations with an in-flight submit.
	Hook func(ctx context.Context, payload domain.AccountPayload) (domain.AccountResult, error)
}

var _ ports.AccountCreator = (*MockAccountCreator)(nil)

func NewMockAccountCreator() *MockAccountCreator {
	return &MockAccountCreator{Result: domain.AccountResult{UserID: "user-123"}}
}

func (m *MockAccountCreator) CreateAccount(ctx context.Context, payload domain.AccountPayload) (domain.AccountResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, payload)
	hook, result, err := m.Hook, m.Result, m.CreateError
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, payload)
	}
	if err != nil {
		return domain.AccountResult{}, err
	}
	return result, nil
}

func (m *MockAccountCreator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastPayload returns the most recent payload, or false if none was sent.
func (m *MockAccountCreator) LastPayload() (domain.AccountPayload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return domain.AccountPayload{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// OtpCall is one recorded gateway call.
type OtpCall struct {
	Channel    domain.ChannelID
	Identifier string
	Code       string
}

// MockOtpGateway implements ports.OtpGateway. Verify accepts ValidCode when set,
// and any code otherwise.
type MockOtpGateway struct {
	mu sync.Mutex

	ValidCode   string
	SendCalls   []OtpCall
	VerifyCalls []OtpCall

	// Error injection, per channel
	SendErrors   map[domain.ChannelID]error
	VerifyErrors map[domain.ChannelID]error

	SendHook   func(ctx context.Context, channel domain.ChannelID, identifier string) error
	VerifyHook func(ctx context.Context, channel domain.ChannelID, identifier, code string) error
}

var _ ports.OtpGateway = (*MockOtpGateway)(nil)

func NewMockOtpGateway() *MockOtpGateway {
	return &MockOtpGateway{
		ValidCode:    "123456",
		SendErrors:   map[domain.ChannelID]error{},
		VerifyErrors: map[domain.ChannelID]error{},
	}
}

func (m *MockOtpGateway) Send(ctx context.Context, channel domain.ChannelID, identifier string) error {
	m.mu.Lock()
	m.SendCalls = append(m.SendCalls, OtpCall{Channel: channel, Identifier: identifier})
	hook, err := m.SendHook, m.SendErrors[channel]
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, channel, identifier)
	}
	return err
}

func (m *MockOtpGateway) Verify(ctx context.Context, channel domain.ChannelID, identifier, code string) error {
	m.mu.Lock()
	m.VerifyCalls = append(m.VerifyCalls, OtpCall{Channel: channel, Identifier: identifier, Code: code})
	hook, err, valid := m.VerifyHook, m.VerifyErrors[channel], m.ValidCode
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, channel, identifier, code)
	}
	if err != nil {
		return err
	}
	if valid != "" && code != valid {
		return ErrWrongCode
	}
	return nil
}

func (m *MockOtpGateway) SetSendError(channel domain.ChannelID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendErrors[channel] = err
}

// SendCount returns how many sends were made on channel.
func (m *MockOtpGateway) SendCount(channel domain.ChannelID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.SendCalls {
		if c.Channel == channel {
			n++
		}
	}
	return n
}

func (m *MockOtpGateway) VerifyCount(channel domain.ChannelID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.VerifyCalls {
		if c.Channel == channel {
			n++
		}
	}
	return n
}

// MockCredentialDecoder implements ports.CredentialDecoder from a fixed table.
type MockCredentialDecoder struct {
	mu sync.Mutex

	Identities  map[string]domain.ExternalIdentity
	DecodeError error
	Calls       []string
}

var _ ports.CredentialDecoder = (*MockCredentialDecoder)(nil)

func NewMockCredentialDecoder() *MockCredentialDecoder {
	return &MockCredentialDecoder{Identities: map[string]domain.ExternalIdentity{}}
}

func (m *MockCredentialDecoder) Decode(_ context.Context, raw string) (domain.ExternalIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, raw)
	if m.DecodeError != nil {
		return domain.ExternalIdentity{}, m.DecodeError
	}
	id, ok := m.Identities[raw]
	if !ok {
		return domain.ExternalIdentity{}, errors.New("malformed credential")
	}
	return id, nil
}

// Notice is one recorded banner.
type Notice struct {
	Message  string
	Severity domain.Severity
}

// MockNotifier implements ports.Notifier and keeps every banner.
type MockNotifier struct {
	mu      sync.Mutex
	Notices []Notice
}

var _ ports.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Announce(message string, severity domain.Severity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notices = append(m.Notices, Notice{Message: message, Severity: severity})
}

// Last returns the latest banner, or false if none.
func (m *MockNotifier) Last() (Notice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Notices) == 0 {
		return Notice{}, false
	}
	return m.Notices[len(m.Notices)-1], true
}

func (m *MockNotifier) Count(severity domain.Severity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, notice := range m.Notices {
		if notice.Severity == severity {
			n++
		}
	}
	return n
}
