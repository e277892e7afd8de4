// Package mail defines the inbound message model and RFC 5322 parsing
// used by the routing core.
package mail

import (
	"fmt"
	netmail "net/mail"
	"net/textproto"
	"strings"
)

// Message is a parsed inbound email. It is immutable once parsed and owned
// exclusively by a single routing pass.
type Message struct {
	// ID is the opaque identifier the message was fetched under.
	ID string

	// To and From are canonical local@domain addresses.
	To   string
	From string

	Subject   string
	InReplyTo string

	// References holds every instance of the References header, in order.
	References []string

	// Body is the main body part, carried verbatim with its original
	// Content-Type and Content-Transfer-Encoding headers.
	Body Part

	// Attachments are the attachment parts in their original order.
	Attachments []Part
}

// Part is a single MIME part: its header and its raw, still-encoded content.
type Part struct {
	Header  textproto.MIMEHeader
	Content []byte
}

// IsAttachment reports whether the part carries an attachment disposition.
func (p Part) IsAttachment() bool {
	disposition := p.Header.Get("Content-Disposition")
	return strings.HasPrefix(strings.ToLower(disposition), "attachment")
}

// Canonical extracts the address from an RFC 5322 header value and returns
// it lowercased as local@domain. Display names and comments are discarded.
func Canonical(raw string) (string, error) {
	addr, err := netmail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse address %q: %w", raw, err)
	}
	return strings.ToLower(addr.Address), nil
}

// AddrDomain returns the domain of a canonical address, or the empty string
// if the address has no domain.
func AddrDomain(addr string) string {
	_, domain, _ := strings.Cut(addr, "@")
	return domain
}
