// Package notify delivers account emails for authflow.
//
// LogNotifier writes messages to a structured logger, SMTPNotifier sends
// HTML mail directly and KafkaNotifier publishes mail requests for a
// separate mail service to consume.
package notify

import (
	"net/url"
	"strings"

	"github.com/MrEthical07/authflow"
)

const (
	verifyPath = "/user/verify-email"
	resetPath  = "/user/reset-password"
)

// VerifyLink is the frontend URL a user follows to verify msg.Email.
func VerifyLink(msg authflow.EmailMessage) string {
	return link(msg, verifyPath)
}

// ResetLink is the frontend URL a user follows to choose a new password.
func ResetLink(msg authflow.EmailMessage) string {
	return link(msg, resetPath)
}

func link(msg authflow.EmailMessage, path string) string {
	q := url.Values{}
	q.Set("token", msg.Token)
	q.Set("email", msg.Email)
	return strings.TrimRight(msg.Origin, "/") + path + "?" + q.Encode()
}
