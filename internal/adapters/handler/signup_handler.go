package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/services"
)

// DeviceHeader carries the stable device identifier that selects the draft slot.
const DeviceHeader = "X-Device-ID"

var errBadRequest = errors.New("invalid request")

type SignupHandler struct {
	registry *Registry
	logger   *slog.Logger
}

func NewSignupHandler(registry *Registry, logger *slog.Logger) *SignupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignupHandler{registry: registry, logger: logger}
}

// Routes mounts the signup API under the caller's prefix.
func (h *SignupHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Open)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.withSession(h.Get))
		r.Delete("/", h.withSession(h.Discard))
		r.Post("/resume", h.withSession(h.Resume))
		r.Post("/discard-draft", h.withSession(h.DiscardDraft))
		r.Put("/role", h.withSession(h.SelectRole))
		r.Put("/account", h.withSession(h.SetAccountField))
		r.Put("/profile", h.withSession(h.SetProfileField))
		r.Post("/touch", h.withSession(h.Touch))
		r.Post("/google", h.withSession(h.LinkGoogle))
		r.Post("/advance", h.withSession(h.Advance))
		r.Post("/back", h.withSession(h.Back))
		r.Post("/submit", h.withSession(h.Submit))
		r.Route("/otp/{channel}", func(r chi.Router) {
			r.Post("/send", h.withSession(h.SendOtp))
			r.Post("/resend", h.withSession(h.ResendOtp))
			r.Post("/verify", h.withSession(h.VerifyOtp))
			r.Post("/select", h.withSession(h.SelectChannel))
			r.Post("/paste", h.withSession(h.PasteCode))
			r.Put("/digits/{slot}", h.withSession(h.EnterDigit))
			r.Delete("/digits/{slot}", h.withSession(h.Backspace))
		})
	})
	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, e *entry)

func (h *SignupHandler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := h.registry.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err, nil)
			return
		}
		next(w, r, e)
	}
}

type resumeOfferView struct {
	Role       domain.Role  `json:"role"`
	Phase      domain.Phase `json:"phase"`
	SavedAt    time.Time    `json:"saved_at"`
	AgeSeconds int64        `json:"age_seconds"`
}

type openResponse struct {
	SessionID   string            `json:"session_id"`
	ResumeOffer *resumeOfferView  `json:"resume_offer,omitempty"`
	Snapshot    services.Snapshot `json:"snapshot"`
}

func (h *SignupHandler) Open(w http.ResponseWriter, r *http.Request) {
	device := r.Header.Get(DeviceHeader)
	if device == "" {
		writeError(w, fmt.Errorf("missing %s header: %w", DeviceHeader, errBadRequest), nil)
		return
	}

	e, err := h.registry.Open(r.Context(), device)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to open session", "error", err)
		writeError(w, err, nil)
		return
	}

	resp := openResponse{SessionID: e.id, Snapshot: e.bundle.Session.Snapshot()}
	if offer := e.pendingOffer(); offer != nil {
		resp.ResumeOffer = &resumeOfferView{
			Role:       offer.Draft.Role,
			Phase:      offer.Draft.Phase,
			SavedAt:    offer.Draft.SavedAt,
			AgeSeconds: int64(math.Round(offer.Age.Seconds())),
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SignupHandler) Get(w http.ResponseWriter, _ *http.Request, e *entry) {
	writeJSON(w, http.StatusOK, e.bundle.Session.Snapshot())
}

// Discard abandons the signup and purges the draft.
func (h *SignupHandler) Discard(w http.ResponseWriter, r *http.Request, e *entry) {
	if err := e.bundle.Session.Discard(r.Context()); err != nil {
		h.fail(w, r, e, err)
		return
	}
	h.registry.Remove(e.id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SignupHandler) Resume(w http.ResponseWriter, r *http.Request, e *entry) {
	offer, ok := e.takeOffer()
	if !ok || e.bundle.Negotiator == nil {
		h.fail(w, r, e, domain.ErrNoDraft)
		return
	}
	if err := e.bundle.Negotiator.Resume(r.Context(), e.bundle.Session, offer); err != nil {
		if !errors.Is(err, domain.ErrNoDraft) {
			e.restoreOffer(offer)
		}
		h.fail(w, r, e, err)
		return
	}
	h.ok(w, e)
}

func (h *SignupHandler) DiscardDraft(w http.ResponseWriter, r *http.Request, e *entry) {
	_, ok := e.takeOffer()
	if !ok || e.bundle.Negotiator == nil {
		h.fail(w, r, e, domain.ErrNoDraft)
		return
	}
	if err := e.bundle.Negotiator.Discard(r.Context()); err != nil {
		h.fail(w, r, e, err)
		return
	}
	h.ok(w, e)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *SignupHandler) SelectRole(w http.ResponseWriter, r *http.Request, e *entry) {
	var req roleRequest
	if !h.decode(w, r, e, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err == nil {
		err = e.bundle.Session.SelectRole(role)
	}
	h.reply(w, r, e, err)
}

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *SignupHandler) SetAccountField(w http.ResponseWriter, r *http.Request, e *entry) {
	var req fieldRequest
	if !h.decode(w, r, e, &req) {
		return
	}
	h.reply(w, r, e, e.bundle.Session.SetAccountField(req.Field, req.Value))
}

func (h *SignupHandler) SetProfileField(w http.ResponseWriter, r *http.Request, e *entry) {
	var req fieldRequest
	if !h.decode(w, r, e, &req) {
		return
	}
	h.reply(w, r, e, e.bundle.Session.SetProfileField(req.Field, req.Value))
}

func (h *SignupHandler) Touch(w http.ResponseWriter, r *http.Request, e *entry) {
	var req fieldRequest
	if !h.decode(w, r, e, &req) {
		return
	}
	e.bundle.Session.Touch(r.Context(), req.Field)
	h.ok(w, e)
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

func (h *SignupHandler) LinkGoogle(w http.ResponseWriter, r *http.Request, e *entry) {
	var req credentialRequest
	if !h.decode(w, r, e, &req) {
		return
	}
	h.reply(w, r, e, e.bundle.Session.LinkIdentity(r.Context(), req.Credential))
}

func (h *SignupHandler) Advance(w http.ResponseWriter, r *http.Request, e *entry) {
	h.reply(w, r, e, e.bundle.Session.Advance())
}

func (h *SignupHandler) Back(w http.ResponseWriter, r *http.Request, e *entry) {
	h.reply(w, r, e, e.bundle.Session.Back())
}

type submitResponse struct {
	UserID string `json:"user_id"`
}

func (h *SignupHandler) Submit(w http.ResponseWriter, r *http.Request, e *entry) {
	result, err := e.bundle.Session.Submit(r.Context())
	if err != nil {
		h.fail(w, r, e, err)
		return
	}
	h.registry.Remove(e.id)
	writeJSON(w, http.StatusCreated, submitResponse{UserID: result.UserID})
}

func (h *SignupHandler) SendOtp(w http.ResponseWriter, r *http.Request, e *entry) {
	h.reply(w, r, e, e.bundle.Session.SendOtp(r.Context(), channelParam(r)))
}

func (h *SignupHandler) ResendOtp(w http.ResponseWriter, r *http.Request, e *entry) {
	h.reply(w, r, e, e.bundle.Session.ResendOtp(r.Context(), channelParam(r)))
}

func (h *SignupHandler) VerifyOtp(w http.ResponseWriter, r *http.Request, e *entry) {
	h.reply(w, r, e, e.bundle.Session.SubmitCode(r.Context(), channelParam(r)))
}

func (h *SignupHandler) SelectChannel(w http.ResponseWriter, r *http.Request, e *entry) {
	h.reply(w, r, e, e.bundle.Session.SelectChannel(channelParam(r)))
}

type codeRequest struct {
	Code string `json:"code"`
}

type entryResponse struct {
	Focus    int               `json:"focus"`
	Snapshot services.Snapshot `json:"snapshot"`
}

func (h *SignupHandler) PasteCode(w http.ResponseWriter, r *http.Request, e *entry) {
	var req codeRequest
	if !h.decode(w, r, e, &req) {
		return
	}
	focus, err := e.bundle.Session.PasteCode(channelParam(r), req.Code)
	if err != nil {
		h.fail(w, r, e, err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Focus: focus, Snapshot: e.bundle.Session.Snapshot()})
}

type digitRequest struct {
	Digit string `json:"digit"`
}

func (h *SignupHandler) EnterDigit(w http.ResponseWriter, r *http.Request, e *entry) {
	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, r, e, err)
		return
	}
	var req digitRequest
	if !h.decode(w, r, e, &req) {
		return
	}
	if utf8.RuneCountInString(req.Digit) != 1 {
		h.fail(w, r, e, fmt.Errorf("digit must be a single character: %w", errBadRequest))
		return
	}
	d, _ := utf8.DecodeRuneInString(req.Digit)
	h.reply(w, r, e, e.bundle.Session.EnterDigit(channelParam(r), slot, d))
}

func (h *SignupHandler) Backspace(w http.ResponseWriter, r *http.Request, e *entry) {
	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, r, e, err)
		return
	}
	focus, err := e.bundle.Session.Backspace(channelParam(r), slot)
	if err != nil {
		h.fail(w, r, e, err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Focus: focus, Snapshot: e.bundle.Session.Snapshot()})
}

func (h *SignupHandler) decode(w http.ResponseWriter, r *http.Request, e *entry, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(dst); err != nil {
		h.fail(w, r, e, fmt.Errorf("invalid request body: %w", errBadRequest))
		return false
	}
	return true
}

func (h *SignupHandler) reply(w http.ResponseWriter, r *http.Request, e *entry, err error) {
	if err != nil {
		h.fail(w, r, e, err)
		return
	}
	h.ok(w, e)
}

func (h *SignupHandler) ok(w http.ResponseWriter, e *entry) {
	writeJSON(w, http.StatusOK, e.bundle.Session.Snapshot())
}

func (h *SignupHandler) fail(w http.ResponseWriter, r *http.Request, e *entry, err error) {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "signup request failed",
			"session_id", e.id,
			"path", r.URL.Path,
			"error", err,
		)
	}
	snap := e.bundle.Session.Snapshot()
	writeError(w, err, &snap)
}

func channelParam(r *http.Request) domain.ChannelID {
	return domain.ChannelID(chi.URLParam(r, "channel"))
}

func slotParam(r *http.Request) (int, error) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || slot < 0 || slot >= domain.CodeLength {
		return 0, fmt.Errorf("slot must be between 0 and %d: %w", domain.CodeLength-1, errBadRequest)
	}
	return slot, nil
}
