package mail

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"net/textproto"
	"strings"
)

// Parse parses a raw RFC 5322 message into a Message. The body part and any
// attachment parts are carried with their original headers and raw content so
// they can be re-emitted unchanged. A parse failure here is not a policy
// matter; callers treat it as fatal.
func Parse(id string, raw []byte) (*Message, error) {
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %q: %w", id, err)
	}

	to, err := Canonical(msg.Header.Get("To"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse To header: %w", err)
	}

	from, err := Canonical(msg.Header.Get("From"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse From header: %w", err)
	}

	result := &Message{
		ID:         id,
		To:         to,
		From:       from,
		Subject:    msg.Header.Get("Subject"),
		InReplyTo:  msg.Header.Get("In-Reply-To"),
		References: msg.Header["References"],
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If content type is unparseable, treat as plain text
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return result, nil
	}

	content, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	result.Body = flatBodyPart(msg.Header, contentType, content)
	return result, nil
}

// parseMultipart walks the top-level parts of a multipart message. The first
// part without an attachment disposition becomes the body; every attachment
// part is collected in order. Nested multiparts (e.g. multipart/alternative
// inside multipart/mixed) are carried whole as the body part.
func parseMultipart(body io.Reader, boundary string, result *Message) error {
	reader := multipart.NewReader(body, boundary)

	for {
		// NextRawPart keeps quoted-printable parts encoded and their
		// Content-Transfer-Encoding header intact; NextPart would decode.
		part, err := reader.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		content, err := io.ReadAll(part)
		if err != nil {
			return fmt.Errorf("failed to read part content: %w", err)
		}

		p := Part{
			Header:  clonePartHeader(part.Header),
			Content: content,
		}

		switch {
		case p.IsAttachment():
			result.Attachments = append(result.Attachments, p)
		case result.Body.Header == nil:
			result.Body = p
		default:
			slog.Debug("skipping extra non-attachment part",
				"content_type", p.Header.Get("Content-Type"),
			)
		}
	}

	return nil
}

// flatBodyPart wraps the body of a non-multipart message in a Part, copying
// the content-relevant headers so the part can stand alone when re-emitted.
func flatBodyPart(header netmail.Header, contentType string, content []byte) Part {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", contentType)
	if enc := header.Get("Content-Transfer-Encoding"); enc != "" {
		h.Set("Content-Transfer-Encoding", enc)
	}
	return Part{Header: h, Content: content}
}

func clonePartHeader(header textproto.MIMEHeader) textproto.MIMEHeader {
	clone := make(textproto.MIMEHeader, len(header))
	for key, values := range header {
		clone[key] = append([]string(nil), values...)
	}
	return clone
}
