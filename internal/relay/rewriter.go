package relay

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"strings"

	"privaterelay/internal/mail"
)

// Build constructs the outbound raw MIME message for a routing decision.
// The inbound body part and every attachment are carried over unchanged;
// only the envelope headers are rewritten.
func Build(msg *mail.Message, dec Decision) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", dec.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", dec.Recipient)
	if dec.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", dec.ReplyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", dec.Subject)
	if dec.InReplyTo != "" {
		fmt.Fprintf(&buf, "In-Reply-To: %s\r\n", dec.InReplyTo)
	}
	if len(dec.References) > 0 {
		// Multiple header instances are folded into one, joined with
		// CRLF plus a leading space per RFC 5322 header folding.
		fmt.Fprintf(&buf, "References: %s\r\n", strings.Join(dec.References, "\r\n "))
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	if err := writePart(writer, msg.Body); err != nil {
		return nil, fmt.Errorf("failed to write body part: %w", err)
	}

	for _, att := range msg.Attachments {
		if err := writePart(writer, att); err != nil {
			return nil, fmt.Errorf("failed to write attachment part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf.Bytes(), nil
}

// writePart emits one MIME part with its original header and raw content.
func writePart(writer *multipart.Writer, part mail.Part) error {
	w, err := writer.CreatePart(part.Header)
	if err != nil {
		return err
	}

	_, err = w.Write(part.Content)
	return err
}
