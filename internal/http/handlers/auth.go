package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByMobile(ctx context.Context, countryCode, mobile string) (user.User, error)
}

type SessionIssuer interface {
	Issue(userID, email, role string) (token string, expiresAt time.Time, err error)
}

type PasscodeVerifier interface {
	Verify(ctx context.Context, identifier, code string) error
}

type AuthHandler struct {
	users    UserStore
	sessions SessionIssuer
	otps     PasscodeVerifier
	cfg      config.Config
}

func NewAuthHandler(users UserStore, sessions SessionIssuer, otps PasscodeVerifier, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		otps:     otps,
		cfg:      cfg,
	}
}

type AuthRequest struct {
	Event       string `json:"event" binding:"required,oneof=register login"`
	Mode        string `json:"mode" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
	Password    string `json:"password"`
	Passcode    string `json:"passcode"`
}

var authAliases = map[string]string{
	"country-code": "country_code",
	"countryCode":  "country_code",
}

// Authenticate handles POST /auth for both the register and login events.
// OTP credentials are always re-verified server-side; a client-supplied
// passcode is never taken on faith.
func (h *AuthHandler) Authenticate(ctx *gin.Context) {
	var req AuthRequest

	if !BindMappedJSON(ctx, &req, authAliases) {
		return
	}

	mode, err := ParseMode(req.Mode)

	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	if !h.requireContactFields(ctx, mode.Channel, req.Email, req.Mobile, req.CountryCode) {
		return
	}

	identifier := identifierFor(mode.Channel, req.Email, req.CountryCode, req.Mobile)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	existing, lookupErr := h.lookup(cctx, mode.Channel, req)

	if lookupErr != nil && !errors.Is(lookupErr, user.ErrNotFound) {
		RespondInternal(ctx, lookupErr)
		return
	}

	var u user.User

	switch req.Event {
	case "register":
		if lookupErr == nil {
			RespondConflict(ctx, "User already exists.")
			return
		}

		if mode.Credential == CredentialOTP {
			if req.Passcode == "" {
				RespondBadRequest(ctx, "Passcode is required for OTP registration.", nil)
				return
			}

			if !h.verifyPasscode(ctx, cctx, identifier, req.Passcode) {
				return
			}
		}

		u, err = h.register(cctx, mode.Channel, req)

		if err != nil {
			if errors.Is(err, user.ErrDuplicate) {
				RespondConflict(ctx, "User already exists.")
				return
			}

			RespondInternal(ctx, err)
			return
		}

	case "login":
		if errors.Is(lookupErr, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}

		u = existing

		if mode.Credential == CredentialPassword {
			if security.CheckPassword(u.PasswordHash, req.Password) != nil {
				RespondUnauthorized(ctx, "Invalid credentials.")
				return
			}
		} else {
			if req.Passcode == "" {
				RespondBadRequest(ctx, "Passcode is required for OTP login.", nil)
				return
			}

			if !h.verifyPasscode(ctx, cctx, identifier, req.Passcode) {
				return
			}
		}
	}

	token, expiresAt, err := h.sessions.Issue(u.ID, u.Email, u.Role)

	if err != nil {
		RespondInternal(ctx, err)
		return
	}

	h.setSessionCookie(ctx, token, expiresAt)

	// nothing but the identifier goes back; the token travels in the cookie
	RespondSuccess(ctx, gin.H{"user_id": u.ID})
}

func (h *AuthHandler) register(ctx context.Context, channel Channel, req AuthRequest) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:          uuid.NewString(),
		Email:       req.Email,
		Mobile:      req.Mobile,
		CountryCode: req.CountryCode,
		Role:        "user",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// the channel used to sign up is the one considered verified
	switch channel {
	case ChannelEmail:
		u.EmailVerified = true
	case ChannelMobile:
		u.MobileVerified = true
	}

	if req.Password != "" {
		hash, err := security.HashPassword(req.Password)

		if err != nil {
			return user.User{}, err
		}

		u.PasswordHash = hash
		u.PasswordSet = true
	}

	if err := h.users.Create(ctx, u); err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (h *AuthHandler) lookup(ctx context.Context, channel Channel, req AuthRequest) (user.User, error) {
	if channel == ChannelEmail {
		return h.users.GetByEmail(ctx, req.Email)
	}

	return h.users.GetByMobile(ctx, req.CountryCode, req.Mobile)
}

func (h *AuthHandler) requireContactFields(ctx *gin.Context, channel Channel, email, mobile, countryCode string) bool {
	switch channel {
	case ChannelEmail:
		if email == "" {
			RespondBadRequest(ctx, "Email is required.", nil)
			return false
		}
	case ChannelMobile:
		if mobile == "" || countryCode == "" {
			RespondBadRequest(ctx, "Mobile and country-code are required.", nil)
			return false
		}
	}

	return true
}

func (h *AuthHandler) verifyPasscode(ctx *gin.Context, cctx context.Context, identifier, code string) bool {
	err := h.otps.Verify(cctx, identifier, code)

	if err == nil {
		return true
	}

	if errors.Is(err, otp.ErrNoMatch) {
		RespondUnauthorized(ctx, "Invalid or expired OTP.")
		return false
	}

	RespondInternal(ctx, err)
	return false
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		auth.SessionCookieName,
		raw,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}
