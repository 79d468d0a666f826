package handlers

import (
	"errors"
	"strings"
)

type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

type Credential string

const (
	CredentialPassword Credential = "password"
	CredentialOTP      Credential = "otp"
)

var errBadMode = errors.New(`invalid mode: must be "email" or "mobile", optionally suffixed with ":password" or ":otp"`)

// Mode selects which contact channel and credential kind a request uses,
// e.g. "email", "mobile:password", "email:otp". The bare channel defaults to
// the OTP credential.
type Mode struct {
	Channel    Channel
	Credential Credential
}

// identifierFor derives the OTP bookkeeping key from the mode's channel, not
// from whichever contact fields happen to be present. A stray email in a
// mobile-mode body must not change where the code is stored.
func identifierFor(channel Channel, email, countryCode, mobile string) string {
	if channel == ChannelEmail {
		return email
	}

	return countryCode + mobile
}

func ParseMode(raw string) (Mode, error) {
	channel, credential, _ := strings.Cut(strings.TrimSpace(raw), ":")

	m := Mode{Credential: CredentialOTP}

	switch Channel(channel) {
	case ChannelEmail, ChannelMobile:
		m.Channel = Channel(channel)
	default:
		return Mode{}, errBadMode
	}

	switch credential {
	case "":
	case string(CredentialPassword):
		m.Credential = CredentialPassword
	case string(CredentialOTP):
		m.Credential = CredentialOTP
	default:
		return Mode{}, errBadMode
	}

	return m, nil
}
