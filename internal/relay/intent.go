// Package relay implements the message-routing and reply-correlation core:
// alias classification, policy checks, envelope rewriting, and dispatch.
package relay

import (
	"strings"

	"privaterelay/internal/mail"
)

// Intent is the routing intent derived from the inbound To address.
type Intent int

const (
	// IntentDefault forwards the message to the fixed private recipient.
	IntentDefault Intent = iota

	// IntentReply routes an authenticated reply back to the original
	// correspondent through the correlation table.
	IntentReply

	// IntentCompose sends a fresh message whose addressing is encoded in
	// the subject line.
	IntentCompose
)

// String returns the intent name for logging.
func (i Intent) String() string {
	switch i {
	case IntentReply:
		return "reply"
	case IntentCompose:
		return "compose"
	default:
		return "default"
	}
}

// Classifier derives the routing intent from the local part of the To
// address. Special aliases have the form <purpose>_<token>@<domain>; the
// token must match the configured secret or the address is treated as an
// ordinary recipient.
type Classifier struct {
	domain         string
	token          string
	replyKeyword   string
	composeKeyword string
}

// NewClassifier creates a Classifier. An empty composeKeyword disables the
// compose intent.
func NewClassifier(domain, token, replyKeyword, composeKeyword string) *Classifier {
	return &Classifier{
		domain:         domain,
		token:          token,
		replyKeyword:   replyKeyword,
		composeKeyword: composeKeyword,
	}
}

// Classify returns the routing intent for the message. A reply alias without
// an In-Reply-To header, a wrong token, and any non-alias address all
// classify as IntentDefault. Comparisons are case-insensitive: the To
// address arrives lowercased from canonicalization regardless of how the
// token or keywords were configured.
func (c *Classifier) Classify(msg *mail.Message) Intent {
	local, domain, ok := strings.Cut(msg.To, "@")
	if !ok || !strings.EqualFold(domain, c.domain) {
		return IntentDefault
	}

	purpose, token, ok := strings.Cut(local, "_")
	if !ok || !strings.EqualFold(token, c.token) {
		return IntentDefault
	}

	switch {
	case strings.EqualFold(purpose, c.replyKeyword) && msg.InReplyTo != "":
		return IntentReply
	case c.composeKeyword != "" && strings.EqualFold(purpose, c.composeKeyword):
		return IntentCompose
	default:
		return IntentDefault
	}
}

// aliasToken re-derives the token from an alias address's local part.
func aliasToken(addr string) string {
	local, _, _ := strings.Cut(addr, "@")
	_, token, _ := strings.Cut(local, "_")
	return token
}
