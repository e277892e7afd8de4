package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"privaterelay/internal/mail"
	"privaterelay/internal/mailer"
	"privaterelay/internal/store"
)

// BlocklistStore looks up deny-list entries by address or domain key.
type BlocklistStore interface {
	Get(ctx context.Context, key string) (store.BlocklistEntry, error)
}

// Bounce describes a policy rejection of an inbound message.
type Bounce struct {
	Recipient string
	Reason    mailer.Reason
}

// Blocklist checks inbound addressing against the deny list.
type Blocklist struct {
	entries BlocklistStore
}

// NewBlocklist creates a Blocklist filter over the given store.
func NewBlocklist(entries BlocklistStore) *Blocklist {
	return &Blocklist{entries: entries}
}

// Check probes the deny list for the recipient, the sender, and the sender's
// domain, in that order. The first match wins. A blocked recipient bounces
// as an unknown mailbox; a blocked sender or sender domain bounces as a
// content rejection. A nil result means the message passes.
func (b *Blocklist) Check(ctx context.Context, to, from string) (*Bounce, error) {
	probes := []struct {
		key    string
		reason mailer.Reason
	}{
		{to, mailer.ReasonDoesNotExist},
		{from, mailer.ReasonContentRejected},
		{mail.AddrDomain(from), mailer.ReasonContentRejected},
	}

	for _, probe := range probes {
		_, err := b.entries.Get(ctx, probe.key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("blocklist lookup for %q: %w", probe.key, err)
		}

		slog.Info("address is blocklisted", "key", probe.key, "reason", string(probe.reason))
		return &Bounce{Recipient: to, Reason: probe.reason}, nil
	}

	return nil, nil
}
