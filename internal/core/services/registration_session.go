package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/validation"
)

// Scope groups user-facing errors; one message is kept per scope.
type Scope string

const (
	ScopeAccount Scope = "account"
	ScopeProfile Scope = "profile"
	ScopeSubmit  Scope = "submit"
)

// SessionConfig is the flow configuration of a signup surface.
type SessionConfig struct {
	Channels            []domain.ChannelID
	RequireBoth         bool
	RequireVerification bool
	ResendCooldown      time.Duration
	SwitchDelay         time.Duration
	AutosaveDelay       time.Duration
}

// DefaultSessionConfig requires both email and phone verification.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Channels:            []domain.ChannelID{domain.ChannelEmail, domain.ChannelPhone},
		RequireBoth:         true,
		RequireVerification: true,
		ResendCooldown:      domain.ResendCooldown,
		SwitchDelay:         DefaultSwitchDelay,
		AutosaveDelay:       DefaultAutosaveDelay,
	}
}

// Dependencies are the collaborators a session talks to.
type Dependencies struct {
	Accounts ports.AccountCreator
	Otp      ports.OtpGateway
	Linker   *IdentityLinker
	Drafts   *DraftStore
	Clock    ports.Clock
	Notifier ports.Notifier
}

type SessionOption func(*RegistrationSession)

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *RegistrationSession) {
		s.logger = logger
	}
}

func WithMetrics(m ports.Metrics) SessionOption {
	return func(s *RegistrationSession) {
		s.metrics = m
	}
}

// RegistrationSession is the two-phase signup state machine. State changes only
// through its named transitions. Collaborators are called without the session
// lock held so one slow call never blocks the rest of the session.
type RegistrationSession struct {
	cfg       SessionConfig
	deps      Dependencies
	logger    *slog.Logger
	metrics   ports.Metrics
	autosaver *Autosaver

	mu           sync.Mutex
	phase        domain.Phase
	role         domain.Role
	account      domain.AccountFields
	profile      domain.Profile
	link         *domain.IdentityLink
	touched      map[string]bool
	scopeErrors  map[Scope]string
	verification *Verification
	resumed      bool
	submitting   bool
	closed       bool
	generation   uint64
}

func NewRegistrationSession(cfg SessionConfig, deps Dependencies, opts ...SessionOption) (*RegistrationSession, error) {
	if deps.Accounts == nil {
		return nil, fmt.Errorf("account creator is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.Otp == nil && len(cfg.Channels) > 0 {
		return nil, fmt.Errorf("otp gateway is required when channels are configured")
	}
	if cfg.RequireVerification && len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("verification is required but no channels are configured")
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}

	s := &RegistrationSession{
		cfg:         cfg,
		deps:        deps,
		logger:      slog.Default(),
		metrics:     ports.NopMetrics{},
		phase:       domain.PhaseAccount,
		touched:     map[string]bool{},
		scopeErrors: map[Scope]string{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(cfg.Channels) > 0 {
		channels := make([]*OtpChannel, 0, len(cfg.Channels))
		for _, id := range cfg.Channels {
			if !id.IsValid() {
				return nil, fmt.Errorf("%q: %w", id, domain.ErrUnknownChannel)
			}
			channels = append(channels, NewOtpChannel(id, deps.Otp, deps.Clock, cfg.ResendCooldown, s.metrics, s.logger))
		}
		v, err := NewVerification(channels, cfg.RequireBoth, deps.Clock, cfg.SwitchDelay)
		if err != nil {
			return nil, err
		}
		s.verification = v
	}
	if deps.Drafts != nil {
		s.autosaver = NewAutosaver(deps.Drafts, deps.Clock, cfg.AutosaveDelay, s.logger)
	}
	return s, nil
}

// SelectRole chooses the role during the account phase. Picking a different
// role resets the profile to the empty variant for that role.
func (s *RegistrationSession) SelectRole(role domain.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%q: %w", role, domain.ErrUnknownRole)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseAccount {
		return fmt.Errorf("change role: %w", domain.ErrInvalidPhase)
	}

	s.role = role
	if s.profile == nil || s.profile.Role() != role {
		next := domain.NewProfile(role)
		if verified, ok := s.verifiedIdentifierLocked(domain.ChannelPhone); ok {
			// A verified number follows the user into the new role's profile.
			_ = next.Set(domain.FieldPhone, verified)
		} else {
			s.invalidateChannel(domain.ChannelPhone)
		}
		s.profile = next
	}
	s.touched[domain.FieldRole] = true
	delete(s.scopeErrors, ScopeAccount)
	s.scheduleSaveLocked()
	return nil
}

// SetAccountField edits a phase-one field. Account fields are frozen in the
// profile phase, and a verified email can no longer be changed.
func (s *RegistrationSession) SetAccountField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseAccount {
		return domain.ErrFieldsFrozen
	}
	if field == domain.FieldEmail {
		value = strings.TrimSpace(value)
		if verified, ok := s.verifiedIdentifierLocked(domain.ChannelEmail); ok && value != verified {
			s.scopeErrors[ScopeAccount] = "Your email is verified and can no longer be changed."
			return fmt.Errorf("change email: %w", domain.ErrContactVerified)
		}
	}

	previous, _ := s.account.Get(field)
	if err := s.account.Set(field, value); err != nil {
		return err
	}
	if field == domain.FieldEmail && previous != value {
		s.invalidateChannel(domain.ChannelEmail)
	}
	if !domain.IsSecretField(field) {
		s.scheduleSaveLocked()
	}
	return nil
}

// SetProfileField edits a field of the current role's profile.
func (s *RegistrationSession) SetProfileField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseProfile {
		return fmt.Errorf("edit profile: %w", domain.ErrInvalidPhase)
	}

	if field == domain.FieldPhone {
		if verified, ok := s.verifiedIdentifierLocked(domain.ChannelPhone); ok && validation.NormalizePhone(value) != verified {
			s.scopeErrors[ScopeProfile] = "Your phone number is verified and can no longer be changed."
			return fmt.Errorf("change phone: %w", domain.ErrContactVerified)
		}
	}

	previous, _ := s.profile.Get(field)
	if err := s.profile.Set(field, value); err != nil {
		return err
	}
	if field == domain.FieldPhone && previous != value {
		s.invalidateChannel(domain.ChannelPhone)
	}
	s.scheduleSaveLocked()
	return nil
}

// Touch marks a field as interacted with and flushes the pending draft (field blur).
func (s *RegistrationSession) Touch(ctx context.Context, field string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.touched[field] = true
	s.mu.Unlock()

	if s.autosaver != nil {
		if err := s.autosaver.Flush(ctx); err != nil {
			s.logger.WarnContext(ctx, "draft save on blur failed", "error", err)
		}
	}
}

// LinkIdentity links a Google credential. It needs a selected role and only
// works in the account phase. Re-linking replaces the previous link.
func (s *RegistrationSession) LinkIdentity(ctx context.Context, rawCredential string) error {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.phase != domain.PhaseAccount {
		s.mu.Unlock()
		return fmt.Errorf("link identity: %w", domain.ErrInvalidPhase)
	}
	if !s.role.IsValid() {
		s.scopeErrors[ScopeAccount] = "Select a role before continuing with Google."
		s.mu.Unlock()
		return domain.ErrRoleRequired
	}
	if s.deps.Linker == nil {
		s.mu.Unlock()
		return fmt.Errorf("identity linking is not configured: %w", domain.ErrDecode)
	}
	gen := s.generation
	s.mu.Unlock()

	link, err := s.deps.Linker.Link(ctx, rawCredential)
	s.metrics.IdentityLinked(err == nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return domain.ErrSessionClosed
	}
	if s.phase != domain.PhaseAccount {
		return fmt.Errorf("link identity: %w", domain.ErrInvalidPhase)
	}
	if err != nil {
		s.scopeErrors[ScopeAccount] = "Google sign-in failed. Try again or fill in the form."
		s.deps.Notifier.Announce(s.scopeErrors[ScopeAccount], domain.SeverityError)
		s.logger.WarnContext(ctx, "identity link failed", "error", err)
		return err
	}

	email := strings.TrimSpace(link.Email)
	if verified, ok := s.verifiedIdentifierLocked(domain.ChannelEmail); ok && email != "" && email != verified {
		s.scopeErrors[ScopeAccount] = "This Google account uses a different email than the one you verified."
		s.deps.Notifier.Announce(s.scopeErrors[ScopeAccount], domain.SeverityError)
		return fmt.Errorf("link identity: %w", domain.ErrContactVerified)
	}

	s.link = &link
	if link.Name != "" {
		s.account.Name = link.Name
	}
	if email != "" && email != s.account.Email {
		s.account.Email = email
		s.invalidateChannel(domain.ChannelEmail)
	}
	s.account.Password = link.SyntheticPassword
	s.account.ConfirmPassword = link.SyntheticPassword
	delete(s.scopeErrors, ScopeAccount)
	s.deps.Notifier.Announce("Signed in with Google as "+link.Email, domain.SeveritySuccess)
	s.scheduleSaveLocked()
	return nil
}

// Advance moves from the account phase to the profile phase once the account
// fields validate and a role is selected.
func (s *RegistrationSession) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseAccount {
		return fmt.Errorf("advance: %w", domain.ErrInvalidPhase)
	}
	if !s.role.IsValid() {
		s.touched[domain.FieldRole] = true
		s.scopeErrors[ScopeAccount] = "Select a role to continue."
		return domain.ErrRoleRequired
	}

	if errs := validation.ValidateAccount(s.account, s.link != nil); errs.HasErrors() {
		for _, k := range errs.Keys() {
			s.touched[k] = true
		}
		s.scopeErrors[ScopeAccount] = "Fix the highlighted fields to continue."
		return fmt.Errorf("account %v: %w", errs.Keys(), domain.ErrValidation)
	}

	if s.profile == nil || s.profile.Role() != s.role {
		s.profile = domain.NewProfile(s.role)
	}
	s.phase = domain.PhaseProfile
	delete(s.scopeErrors, ScopeAccount)
	s.scheduleSaveLocked()
	return nil
}

// Back returns to the account phase. Profile data is kept.
func (s *RegistrationSession) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	s.phase = domain.PhaseAccount
	return nil
}

// Rehydrate applies a resumed draft to a fresh session: it enters the profile
// phase with the saved role and fields. Passwords are never in drafts, so the
// account phase is re-validated on submit.
func (s *RegistrationSession) Rehydrate(draft domain.Draft) error {
	if !draft.Role.IsValid() {
		return domain.ErrNoDraft
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.role.IsValid() || s.phase != domain.PhaseAccount {
		return fmt.Errorf("rehydrate a session in use: %w", domain.ErrInvalidPhase)
	}

	s.role = draft.Role
	s.account = domain.AccountFields{
		Name:  draft.FormData[domain.FieldName],
		Email: strings.TrimSpace(draft.FormData[domain.FieldEmail]),
	}
	s.profile = domain.ProfileFromFields(draft.Role, draft.FormData)
	s.phase = domain.PhaseProfile
	s.resumed = true
	return nil
}

func (s *RegistrationSession) SendOtp(ctx context.Context, id domain.ChannelID) error {
	ch, identifier, err := s.channelFor(id)
	if err != nil {
		return err
	}
	err = ch.Send(ctx, identifier)
	s.announceChannel(ch, err, "Code sent to "+identifier)
	return err
}

func (s *RegistrationSession) ResendOtp(ctx context.Context, id domain.ChannelID) error {
	ch, identifier, err := s.channelFor(id)
	if err != nil {
		return err
	}
	err = ch.Resend(ctx, identifier)
	if errors.Is(err, domain.ErrCooldownActive) {
		return err
	}
	s.announceChannel(ch, err, "New code sent to "+identifier)
	return err
}

func (s *RegistrationSession) SubmitCode(ctx context.Context, id domain.ChannelID) error {
	ch, _, err := s.channelFor(id)
	if err != nil {
		return err
	}
	err = ch.Submit(ctx)
	if errors.Is(err, domain.ErrIncompleteCode) {
		return err
	}
	s.announceChannel(ch, err, string(id)+" verified")
	return err
}

func (s *RegistrationSession) EnterDigit(id domain.ChannelID, slot int, digit rune) error {
	ch, _, err := s.channelFor(id)
	if err != nil {
		return err
	}
	return ch.SetDigit(slot, digit)
}

func (s *RegistrationSession) PasteCode(id domain.ChannelID, code string) (int, error) {
	ch, _, err := s.channelFor(id)
	if err != nil {
		return 0, err
	}
	return ch.Paste(code)
}

func (s *RegistrationSession) Backspace(id domain.ChannelID, slot int) (int, error) {
	ch, _, err := s.channelFor(id)
	if err != nil {
		return slot, err
	}
	return ch.Backspace(slot)
}

func (s *RegistrationSession) SelectChannel(id domain.ChannelID) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.verification == nil {
		return domain.ErrUnknownChannel
	}
	return s.verification.Select(id)
}

// FullyVerified is true once every required channel is verified.
func (s *RegistrationSession) FullyVerified() bool {
	if s.verification == nil {
		return !s.cfg.RequireVerification
	}
	return s.verification.FullyVerified()
}

// Submit creates the account. On success the draft is purged and the session
// closes; on failure the session is left intact for a retry.
func (s *RegistrationSession) Submit(ctx context.Context) (domain.AccountResult, error) {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return domain.AccountResult{}, err
	}
	if s.phase != domain.PhaseProfile {
		s.mu.Unlock()
		return domain.AccountResult{}, fmt.Errorf("submit: %w", domain.ErrInvalidPhase)
	}
	if s.submitting {
		s.mu.Unlock()
		return domain.AccountResult{}, fmt.Errorf("submit already in flight: %w", domain.ErrInvalidTransition)
	}
	if errs := validation.ValidateAccount(s.account, s.link != nil); errs.HasErrors() {
		for _, k := range errs.Keys() {
			s.touched[k] = true
		}
		s.scopeErrors[ScopeSubmit] = "Go back and complete your account details."
		s.mu.Unlock()
		return domain.AccountResult{}, fmt.Errorf("account %v: %w", errs.Keys(), domain.ErrValidation)
	}
	if errs := validation.ValidateProfile(s.role, s.profile); errs.HasErrors() {
		for _, k := range errs.Keys() {
			s.touched[k] = true
		}
		s.scopeErrors[ScopeProfile] = "Fix the highlighted fields to finish."
		s.mu.Unlock()
		return domain.AccountResult{}, fmt.Errorf("profile %v: %w", errs.Keys(), domain.ErrValidation)
	}
	if s.cfg.RequireVerification && !s.FullyVerified() {
		s.scopeErrors[ScopeSubmit] = "Verify your contact details before creating the account."
		s.mu.Unlock()
		return domain.AccountResult{}, domain.ErrVerificationRequired
	}
	if id, ok := s.staleVerificationLocked(); ok {
		s.scopeErrors[ScopeSubmit] = "Your " + string(id) + " changed after it was verified. Restore the verified " + string(id) + " to continue."
		s.mu.Unlock()
		return domain.AccountResult{}, fmt.Errorf("%s identifier changed: %w", id, domain.ErrVerificationRequired)
	}

	payload := s.payloadLocked()
	role := s.role
	gen := s.generation
	s.submitting = true
	delete(s.scopeErrors, ScopeSubmit)
	delete(s.scopeErrors, ScopeProfile)
	s.mu.Unlock()

	result, err := s.deps.Accounts.CreateAccount(ctx, payload)

	s.mu.Lock()
	s.submitting = false
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return domain.AccountResult{}, domain.ErrSessionClosed
	}
	if err != nil {
		msg := "We could not create your account right now. Please try again."
		var ce *domain.CreationError
		if errors.As(err, &ce) {
			msg = ce.UserMessage()
		}
		s.scopeErrors[ScopeSubmit] = msg
		s.mu.Unlock()
		s.metrics.Submission(role, "failed")
		s.deps.Notifier.Announce(msg, domain.SeverityError)
		s.logger.WarnContext(ctx, "account creation failed", "role", role, "error", err)
		return domain.AccountResult{}, fmt.Errorf("create account: %w", err)
	}

	s.closeLocked()
	s.mu.Unlock()

	s.finish(ctx)
	s.metrics.Submission(role, "created")
	s.deps.Notifier.Announce("Account created. Welcome aboard!", domain.SeveritySuccess)
	s.logger.InfoContext(ctx, "account created", "role", role, "user_id", result.UserID)
	return result, nil
}

// Discard abandons the signup ("start fresh"): the draft is purged and the session closes.
func (s *RegistrationSession) Discard(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closeLocked()
	s.mu.Unlock()
	s.finish(ctx)
	return nil
}

// Release ends the session but keeps its draft, as when the tab goes away
// mid-flow. Pending edits are flushed first so the slot can be resumed.
func (s *RegistrationSession) Release(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	s.mu.Unlock()

	if s.autosaver == nil {
		return
	}
	if err := s.autosaver.Flush(ctx); err != nil {
		s.logger.WarnContext(ctx, "draft flush on release failed", "error", err)
	}
	s.autosaver.Stop()
}

// Closed reports whether the session was submitted, discarded or released.
func (s *RegistrationSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *RegistrationSession) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *RegistrationSession) Role() domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *RegistrationSession) IdentityLink() (domain.IdentityLink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == nil {
		return domain.IdentityLink{}, false
	}
	return *s.link, true
}

// AccountErrors is the latest account-phase validation result, regardless of touch state.
func (s *RegistrationSession) AccountErrors() domain.ErrorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.ValidateAccount(s.account, s.link != nil)
}

func (s *RegistrationSession) ProfileErrors() domain.ErrorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.ValidateProfile(s.role, s.profile)
}

// VisibleErrors returns the errors of the current phase for touched fields only.
func (s *RegistrationSession) VisibleErrors() domain.ErrorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseErrorsLocked().Visible(s.touched)
}

func (s *RegistrationSession) LastError(scope Scope) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopeErrors[scope]
}

func (s *RegistrationSession) PasswordStrength() validation.Strength {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.PasswordStrength(s.account.Password)
}

// Draft returns the non-secret snapshot that autosave would write.
func (s *RegistrationSession) Draft() (domain.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.role.IsValid() {
		return domain.Draft{}, false
	}
	return s.draftLocked(), true
}

func (s *RegistrationSession) phaseErrorsLocked() domain.ErrorMap {
	if s.phase == domain.PhaseProfile {
		return validation.ValidateProfile(s.role, s.profile)
	}
	return validation.ValidateAccount(s.account, s.link != nil)
}

func (s *RegistrationSession) payloadLocked() domain.AccountPayload {
	password := s.account.Password
	p := domain.AccountPayload{
		Role:    s.role,
		Name:    s.account.Name,
		Email:   strings.TrimSpace(s.account.Email),
		Profile: s.profile.Fields(),
	}
	if s.link != nil {
		password = s.link.SyntheticPassword
		p.ExternalID = s.link.ExternalID
		p.Provider = s.link.Provider
	}
	if phone, ok := p.Profile[domain.FieldPhone]; ok && phone != "" {
		p.Profile[domain.FieldPhone] = validation.NormalizePhone(phone)
	}
	p.Password = password
	return p
}

func (s *RegistrationSession) draftLocked() domain.Draft {
	form := s.account.Public()
	if s.profile != nil {
		for k, v := range s.profile.Fields() {
			form[k] = v
		}
	}
	return domain.Draft{
		Role:     s.role,
		Phase:    s.phase,
		FormData: form,
		SavedAt:  s.deps.Clock.Now(),
	}
}

func (s *RegistrationSession) scheduleSaveLocked() {
	if s.autosaver == nil || !s.role.IsValid() {
		return
	}
	s.autosaver.Schedule(s.draftLocked())
}

// channelFor resolves a channel and its identifier from the current fields.
func (s *RegistrationSession) channelFor(id domain.ChannelID) (*OtpChannel, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return nil, "", err
	}
	if s.verification == nil {
		return nil, "", fmt.Errorf("%q: %w", id, domain.ErrUnknownChannel)
	}
	ch, err := s.verification.Channel(id)
	if err != nil {
		return nil, "", err
	}

	return ch, s.identifierLocked(id), nil
}

// identifierLocked is the address a code for id goes to, or "" when the
// current fields do not hold a usable one.
func (s *RegistrationSession) identifierLocked(id domain.ChannelID) string {
	switch id {
	case domain.ChannelEmail:
		if email := strings.TrimSpace(s.account.Email); validation.IsEmail(email) {
			return email
		}
	case domain.ChannelPhone:
		if s.profile != nil {
			if digits := validation.NormalizePhone(s.profile.Phone()); len(digits) == validation.PhoneDigits {
				return digits
			}
		}
	}
	return ""
}

// verifiedIdentifierLocked returns the address a verified channel was verified for.
func (s *RegistrationSession) verifiedIdentifierLocked(id domain.ChannelID) (string, bool) {
	if s.verification == nil {
		return "", false
	}
	ch, err := s.verification.Channel(id)
	if err != nil {
		return "", false
	}
	st := ch.State()
	if st.Status != domain.OtpVerified {
		return "", false
	}
	return st.Identifier, true
}

// staleVerificationLocked finds a verified channel whose address no longer
// matches the one that would be submitted.
func (s *RegistrationSession) staleVerificationLocked() (domain.ChannelID, bool) {
	if s.verification == nil {
		return "", false
	}
	for _, ch := range s.verification.Channels() {
		if verified, ok := s.verifiedIdentifierLocked(ch.ID()); ok && verified != s.identifierLocked(ch.ID()) {
			return ch.ID(), true
		}
	}
	return "", false
}

func (s *RegistrationSession) invalidateChannel(id domain.ChannelID) {
	if s.verification == nil {
		return
	}
	if ch, err := s.verification.Channel(id); err == nil {
		ch.Invalidate()
	}
}

func (s *RegistrationSession) announceChannel(ch *OtpChannel, err error, success string) {
	if err == nil {
		s.deps.Notifier.Announce(success, domain.SeveritySuccess)
		return
	}
	if errors.Is(err, domain.ErrSessionClosed) || errors.Is(err, domain.ErrStaleResult) {
		return
	}
	if msg := ch.State().LastError; msg != "" {
		s.deps.Notifier.Announce(msg, domain.SeverityError)
	}
}

func (s *RegistrationSession) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guardLocked()
}

func (s *RegistrationSession) guardLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	return nil
}

func (s *RegistrationSession) closeLocked() {
	s.closed = true
	s.generation++
	if s.verification != nil {
		s.verification.Close()
	}
}

// finish stops autosave and purges the draft slot. Called without the lock.
func (s *RegistrationSession) finish(ctx context.Context) {
	if s.autosaver != nil {
		s.autosaver.Stop()
	}
	if s.deps.Drafts != nil {
		if err := s.deps.Drafts.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "draft purge failed", "error", err)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Announce(string, domain.Severity) {}
