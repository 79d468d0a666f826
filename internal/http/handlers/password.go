package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/gin-gonic/gin"
)

type PasswordUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByMobile(ctx context.Context, countryCode, mobile string) (user.User, error)
	GetByID(ctx context.Context, userID string) (user.User, error)
	SetPassword(ctx context.Context, userID, passwordHash string) error
}

type PasswordHandler struct {
	users    PasswordUserStore
	issuer   PasscodeIssuer
	verifier PasscodeVerifier
	profiles *cache.Cache
}

func NewPasswordHandler(users PasswordUserStore, issuer PasscodeIssuer, verifier PasscodeVerifier, profiles *cache.Cache) *PasswordHandler {
	return &PasswordHandler{
		users:    users,
		issuer:   issuer,
		verifier: verifier,
		profiles: profiles,
	}
}

type PasswordRequest struct {
	Event           string `json:"event" binding:"required"`
	Mode            string `json:"mode"`
	Email           string `json:"email" binding:"omitempty,email"`
	Mobile          string `json:"mobile"`
	CountryCode     string `json:"country_code"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

var passwordAliases = map[string]string{
	"country-code":     "country_code",
	"countryCode":      "country_code",
	"new-password":     "new_password",
	"newPassword":      "new_password",
	"current-password": "current_password",
	"currentPassword":  "current_password",
	"passcode":         "otp",
}

// ManagePassword drives the password lifecycle state machine: forgot and
// reset run unauthenticated (OTP-gated), update and set require a session
// identity from the gateway.
func (h *PasswordHandler) ManagePassword(ctx *gin.Context) {
	var req PasswordRequest

	if !BindMappedJSON(ctx, &req, passwordAliases) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	var u user.User

	switch req.Event {
	case "forgot":
		h.forgot(ctx, cctx, req)
		return

	case "reset":
		if req.Mode == "" || req.OTP == "" || req.NewPassword == "" {
			RespondBadRequest(ctx, `Event "reset" requires mode, otp, and new-password.`, nil)
			return
		}

		mode, err := ParseMode(req.Mode)

		if err != nil {
			RespondBadRequest(ctx, err.Error(), nil)
			return
		}

		if !h.verifyResetCode(ctx, cctx, mode.Channel, req) {
			return
		}

		u, err = h.lookupByContact(cctx, mode.Channel, req)

		if err != nil {
			h.respondLookupError(ctx, err)
			return
		}

	case "update":
		userID, ok := middlewares.UserIDFromContext(ctx)

		if !ok || userID == "" {
			RespondUnauthorized(ctx, "Unauthorized: active session required.")
			return
		}

		if req.CurrentPassword == "" || req.NewPassword == "" {
			RespondBadRequest(ctx, "Current and new passwords are required.", nil)
			return
		}

		var err error
		u, err = h.users.GetByID(cctx, userID)

		if err != nil {
			h.respondLookupError(ctx, err)
			return
		}

		if security.CheckPassword(u.PasswordHash, req.CurrentPassword) != nil {
			RespondUnauthorized(ctx, "Invalid current password.")
			return
		}

	case "set":
		userID, ok := middlewares.UserIDFromContext(ctx)

		if !ok || userID == "" {
			RespondUnauthorized(ctx, "Unauthorized: active session required.")
			return
		}

		if req.NewPassword == "" {
			RespondBadRequest(ctx, "New password is required.", nil)
			return
		}

		var err error
		u, err = h.users.GetByID(cctx, userID)

		if err != nil {
			h.respondLookupError(ctx, err)
			return
		}

	default:
		RespondBadRequest(ctx, `Invalid event type. Must be "forgot", "reset", "update", or "set".`, nil)
		return
	}

	// common write step for reset, update and set
	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, err)
		return
	}

	if err := h.users.SetPassword(cctx, u.ID, hash); err != nil {
		h.respondLookupError(ctx, err)
		return
	}

	h.profiles.Delete(u.ID)

	RespondSuccess(ctx, gin.H{
		"message": fmt.Sprintf("Password %s successfully.", req.Event),
	})
}

func (h *PasswordHandler) forgot(ctx *gin.Context, cctx context.Context, req PasswordRequest) {
	if req.Mode == "" {
		RespondBadRequest(ctx, "Mode (email/mobile) is required for forgot password.", nil)
		return
	}

	mode, err := ParseMode(req.Mode)

	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	recipient, ok := contactFor(ctx, mode.Channel, req.Email, req.Mobile, req.CountryCode)

	if !ok {
		return
	}

	if _, err := h.lookupByContact(cctx, mode.Channel, req); err != nil {
		h.respondLookupError(ctx, err)
		return
	}

	identifier := identifierFor(mode.Channel, req.Email, req.CountryCode, req.Mobile)

	_, err = h.issuer.Issue(cctx, dispatchChannel(mode.Channel), recipient, identifier)

	if err != nil {
		if errors.Is(err, otp.ErrDispatchFailed) {
			RespondServiceUnavailable(ctx, "Failed to send OTP.")
			return
		}

		RespondInternal(ctx, err)
		return
	}

	RespondSuccess(ctx, gin.H{
		"message": "Password reset instructions sent successfully",
	})
}

func (h *PasswordHandler) verifyResetCode(ctx *gin.Context, cctx context.Context, channel Channel, req PasswordRequest) bool {
	identifier := identifierFor(channel, req.Email, req.CountryCode, req.Mobile)

	err := h.verifier.Verify(cctx, identifier, req.OTP)

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

func (h *PasswordHandler) lookupByContact(ctx context.Context, channel Channel, req PasswordRequest) (user.User, error) {
	if channel == ChannelEmail {
		return h.users.GetByEmail(ctx, req.Email)
	}

	return h.users.GetByMobile(ctx, req.CountryCode, req.Mobile)
}

func (h *PasswordHandler) respondLookupError(ctx *gin.Context, err error) {
	if errors.Is(err, user.ErrNotFound) {
		RespondNotFound(ctx, "User not found.")
		return
	}

	RespondInternal(ctx, err)
}
