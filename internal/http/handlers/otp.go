package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/dispatch"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/gin-gonic/gin"
)

type PasscodeIssuer interface {
	Issue(ctx context.Context, channel dispatch.Channel, recipient, identifier string) (time.Duration, error)
}

type OTPHandler struct {
	issuer   PasscodeIssuer
	verifier PasscodeVerifier
}

func NewOTPHandler(issuer PasscodeIssuer, verifier PasscodeVerifier) *OTPHandler {
	return &OTPHandler{
		issuer:   issuer,
		verifier: verifier,
	}
}

type SendOTPRequest struct {
	Mode        string `json:"mode" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
}

type VerifyOTPRequest struct {
	Mode        string `json:"mode" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
	OTP         string `json:"otp" binding:"required"`
}

var otpAliases = map[string]string{
	"country-code": "country_code",
	"countryCode":  "country_code",
	"passcode":     "otp",
}

func dispatchChannel(c Channel) dispatch.Channel {
	if c == ChannelMobile {
		return dispatch.ChannelSMS
	}
	return dispatch.ChannelEmail
}

// SendOTP issues a fresh passcode over the requested channel. The code never
// appears in the response; callers only learn the expiry window.
func (h *OTPHandler) SendOTP(ctx *gin.Context) {
	var req SendOTPRequest

	if !BindMappedJSON(ctx, &req, otpAliases) {
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

	identifier := identifierFor(mode.Channel, req.Email, req.CountryCode, req.Mobile)

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	expiresIn, err := h.issuer.Issue(cctx, dispatchChannel(mode.Channel), recipient, identifier)

	if err != nil {
		if errors.Is(err, otp.ErrDispatchFailed) {
			RespondServiceUnavailable(ctx, "Failed to send OTP. Please try again later.")
			return
		}

		RespondInternal(ctx, err)
		return
	}

	RespondSuccess(ctx, gin.H{
		"message":    "OTP sent successfully",
		"expires_in": int(expiresIn.Seconds()),
	})
}

// VerifyOTP consumes the newest outstanding passcode for the identifier.
func (h *OTPHandler) VerifyOTP(ctx *gin.Context) {
	var req VerifyOTPRequest

	if !BindMappedJSON(ctx, &req, otpAliases) {
		return
	}

	mode, err := ParseMode(req.Mode)

	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	if _, ok := contactFor(ctx, mode.Channel, req.Email, req.Mobile, req.CountryCode); !ok {
		return
	}

	identifier := identifierFor(mode.Channel, req.Email, req.CountryCode, req.Mobile)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err = h.verifier.Verify(cctx, identifier, req.OTP)

	if err != nil {
		if errors.Is(err, otp.ErrNoMatch) {
			RespondUnauthorized(ctx, "Invalid or expired OTP.")
			return
		}

		RespondInternal(ctx, err)
		return
	}

	RespondSuccess(ctx, gin.H{
		"message": "OTP verified successfully",
	})
}

// contactFor validates the channel's required contact fields and returns the
// dispatch recipient.
func contactFor(ctx *gin.Context, channel Channel, email, mobile, countryCode string) (string, bool) {
	switch channel {
	case ChannelEmail:
		if email == "" {
			RespondBadRequest(ctx, "Email is required.", nil)
			return "", false
		}
		return email, true
	case ChannelMobile:
		if mobile == "" || countryCode == "" {
			RespondBadRequest(ctx, "Mobile and country-code are required.", nil)
			return "", false
		}
		return countryCode + mobile, true
	}

	return "", false
}
