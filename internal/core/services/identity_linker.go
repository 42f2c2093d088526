package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

const syntheticPasswordLength = 16

const (
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars  = "abcdefghijkmnopqrstuvwxyz"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*-_=+?"
)

// IdentityLinker turns an OAuth credential into an identity link with a synthetic password.
type IdentityLinker struct {
	decoder ports.CredentialDecoder
	clock   ports.Clock
	random  io.Reader
}

type LinkerOption func(*IdentityLinker)

// WithRandomSource replaces crypto/rand, mainly for failure tests.
func WithRandomSource(r io.Reader) LinkerOption {
	return func(l *IdentityLinker) {
		l.random = r
	}
}

func NewIdentityLinker(decoder ports.CredentialDecoder, clock ports.Clock, opts ...LinkerOption) (*IdentityLinker, error) {
	if decoder == nil {
		return nil, fmt.Errorf("credential decoder is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	l := &IdentityLinker{decoder: decoder, clock: clock, random: rand.Reader}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Link decodes rawCredential. Every call generates a fresh synthetic password.
func (l *IdentityLinker) Link(ctx context.Context, rawCredential string) (domain.IdentityLink, error) {
	if strings.TrimSpace(rawCredential) == "" {
		return domain.IdentityLink{}, fmt.Errorf("empty credential: %w", domain.ErrDecode)
	}

	identity, err := l.decoder.Decode(ctx, rawCredential)
	if err != nil {
		return domain.IdentityLink{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if identity.SubjectID == "" {
		return domain.IdentityLink{}, fmt.Errorf("credential has no subject: %w", domain.ErrDecode)
	}

	password, err := GenerateSyntheticPassword(l.random)
	if err != nil {
		return domain.IdentityLink{}, fmt.Errorf("generate synthetic password: %w", err)
	}

	return domain.IdentityLink{
		Provider:          domain.ProviderGoogle,
		ExternalID:        identity.SubjectID,
		Name:              strings.TrimSpace(identity.Name),
		Email:             strings.TrimSpace(identity.Email),
		LinkedAt:          l.clock.Now(),
		SyntheticPassword: password,
	}, nil
}

// GenerateSyntheticPassword returns a 16 character password with at least one
// upper-case letter, lower-case letter, digit and symbol.
func GenerateSyntheticPassword(r io.Reader) (string, error) {
	all := upperChars + lowerChars + digitChars + symbolChars
	buf := make([]byte, 0, syntheticPasswordLength)

	for _, set := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := pick(r, set)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < syntheticPasswordLength {
		c, err := pick(r, all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	for i := len(buf) - 1; i > 0; i-- {
		j, err := rand.Int(r, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		buf[i], buf[j.Int64()] = buf[j.Int64()], buf[i]
	}
	return string(buf), nil
}

func pick(r io.Reader, set string) (byte, error) {
	n, err := rand.Int(r, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
