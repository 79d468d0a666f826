package dispatch

import "context"

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

type Message struct {
	Channel Channel
	To      string
	Code    string
}

// Sender hands a one-time passcode to the external SMS/email gateway.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
