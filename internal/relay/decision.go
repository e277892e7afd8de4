package relay

import (
	"fmt"
	netmail "net/mail"
	"strings"
)

// Decision captures everything the rewriter needs to build the outbound
// message. It is computed once per routing pass and never persisted.
type Decision struct {
	// Sender is the From header value, possibly a display address.
	Sender string

	// Recipient is the single To address.
	Recipient string

	// ReplyTo is set only on the default route, pointing a future reply
	// back at the reply alias.
	ReplyTo string

	Subject   string
	InReplyTo string

	// References carries every References header instance of the inbound
	// message, preserving threading.
	References []string
}

// displaySender synthesizes the From value for relayed mail: the real sender
// and recipient are embedded in the display name for legibility while the
// actual address is the fixed no-reply address. The whole display name is
// emitted as a single quoted-string so the value stays a parseable address.
func displaySender(from, to, noReplyAddr string) string {
	addr := netmail.Address{
		Name:    fmt.Sprintf("%q [Relayed from %q]", from, to),
		Address: noReplyAddr,
	}
	return addr.String()
}

// correlationKey derives the correlation table key from an In-Reply-To
// header value: angle brackets stripped, everything before the '@'. This
// assumes the transport echoes back the message id it assigned at dispatch.
func correlationKey(inReplyTo string) string {
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(inReplyTo)
	key, _, _ := strings.Cut(cleaned, "@")
	return key
}

// parseComposeSubject splits a compose subject of the form
// "from # to # subject" into its three trimmed fields. Any other arity is a
// usage error.
func parseComposeSubject(subject string) (from, to, newSubject string, err error) {
	fields := strings.Split(subject, "#")
	if len(fields) != 3 {
		return "", "", "", fmt.Errorf("compose subject must have 3 '#'-separated fields, got %d", len(fields))
	}

	return strings.TrimSpace(fields[0]),
		strings.TrimSpace(fields[1]),
		strings.TrimSpace(fields[2]),
		nil
}
