package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"privaterelay/internal/config"
	"privaterelay/internal/mail"
	"privaterelay/internal/mailer"
	"privaterelay/internal/store"
)

// Outcome is the terminal state of a routing pass. Fatal conditions are not
// an Outcome; they surface as errors so the triggering infrastructure can
// retry or alert.
type Outcome int

const (
	// OutcomeSent means the message was rewritten and dispatched.
	OutcomeSent Outcome = iota

	// OutcomeBounced means a policy rejection was answered with a bounce.
	OutcomeBounced

	// OutcomeDropped means sender authentication failed and the message
	// was discarded without any signal to the sender.
	OutcomeDropped
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeBounced:
		return "bounced"
	case OutcomeDropped:
		return "dropped"
	default:
		return "sent"
	}
}

// Result describes how a routing pass ended.
type Result struct {
	Outcome Outcome

	// MessageID is the outbound message id when Outcome is OutcomeSent.
	MessageID string

	// BounceReason is set when Outcome is OutcomeBounced.
	BounceReason mailer.Reason
}

// BlobStore fetches raw message bytes by message id.
type BlobStore interface {
	Fetch(ctx context.Context, messageID string) ([]byte, error)
}

// CorrelationStore reads and writes reply-correlation records.
type CorrelationStore interface {
	Get(ctx context.Context, messageID string) (store.CorrelationRecord, error)
	Put(ctx context.Context, messageID, to, from string) error
}

// HistoryStore appends anonymized delivery observations.
type HistoryStore interface {
	Append(ctx context.Context, to, from string) error
}

// MailSender dispatches an outbound raw message and returns its message id.
type MailSender interface {
	Send(ctx context.Context, from string, to, replyTo []string, raw []byte) (string, error)
}

// BounceSender emits a non-delivery notification for a rejected message.
type BounceSender interface {
	SendBounce(ctx context.Context, originalMessageID, recipient string, reason mailer.Reason) error
}

// Router sequences a full routing pass: fetch, parse, policy, classify,
// rewrite, dispatch, and post-commit bookkeeping. One Router instance is
// safe for concurrent invocations; all per-message state is local to Route.
type Router struct {
	cfg          *config.Config
	blobs        BlobStore
	blocklist    *Blocklist
	classifier   *Classifier
	correlations CorrelationStore
	history      HistoryStore
	sender       MailSender
	bouncer      BounceSender
	allowlist    map[string]struct{}
}

// NewRouter creates a Router wired to its collaborators.
func NewRouter(
	cfg *config.Config,
	blobs BlobStore,
	blocklist *Blocklist,
	correlations CorrelationStore,
	history HistoryStore,
	sender MailSender,
	bouncer BounceSender,
) *Router {
	allowlist := make(map[string]struct{}, len(cfg.Allowlist))
	for _, addr := range cfg.Allowlist {
		allowlist[strings.ToLower(addr)] = struct{}{}
	}

	return &Router{
		cfg:          cfg,
		blobs:        blobs,
		blocklist:    blocklist,
		classifier:   NewClassifier(cfg.Domain, cfg.Token, cfg.ReplyKeyword, cfg.ComposeKeyword),
		correlations: correlations,
		history:      history,
		sender:       sender,
		bouncer:      bouncer,
		allowlist:    allowlist,
	}
}

// Route processes one inbound message identified by messageID. A non-nil
// error is fatal and aborts the invocation; every policy outcome is
// reported through the Result instead.
func (r *Router) Route(ctx context.Context, messageID string) (Result, error) {
	raw, err := r.blobs.Fetch(ctx, messageID)
	if err != nil {
		return Result{}, err
	}

	msg, err := mail.Parse(messageID, raw)
	if err != nil {
		return Result{}, err
	}

	bounce, err := r.blocklist.Check(ctx, msg.To, msg.From)
	if err != nil {
		return Result{}, err
	}
	if bounce != nil {
		if err := r.bouncer.SendBounce(ctx, messageID, bounce.Recipient, bounce.Reason); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeBounced, BounceReason: bounce.Reason}, nil
	}

	intent := r.classifier.Classify(msg)
	slog.Info("classified message",
		"message_id", messageID,
		"intent", intent.String(),
	)

	var dec Decision
	switch intent {
	case IntentReply:
		if err := r.authorize(msg.To, msg.From); err != nil {
			slog.Warn("dropping unauthorized message", "message_id", messageID, "error", err)
			return Result{Outcome: OutcomeDropped}, nil
		}
		dec, err = r.replyDecision(ctx, msg)
		if err != nil {
			return Result{}, err
		}

	case IntentCompose:
		if err := r.authorize(msg.To, msg.From); err != nil {
			slog.Warn("dropping unauthorized message", "message_id", messageID, "error", err)
			return Result{Outcome: OutcomeDropped}, nil
		}
		dec, err = composeDecision(msg)
		if err != nil {
			return Result{}, err
		}

	default:
		dec = r.defaultDecision(msg)
	}

	outbound, err := Build(msg, dec)
	if err != nil {
		return Result{}, err
	}

	var replyTo []string
	if dec.ReplyTo != "" {
		replyTo = []string{dec.ReplyTo}
	}

	outboundID, err := r.sender.Send(ctx, dec.Sender, []string{dec.Recipient}, replyTo, outbound)
	if err != nil {
		return Result{}, err
	}

	r.postCommit(ctx, msg, outboundID)

	return Result{Outcome: OutcomeSent, MessageID: outboundID}, nil
}

// authorize guards the privileged intents. The token is re-derived from the
// To address independently of classification, and the sender must be on the
// allow-list. Failures here are deliberately silent toward the sender.
func (r *Router) authorize(to, from string) error {
	if !strings.EqualFold(aliasToken(to), r.cfg.Token) {
		return fmt.Errorf("invalid token in %q", to)
	}
	if _, ok := r.allowlist[from]; !ok {
		return fmt.Errorf("%q not in allow list", from)
	}
	return nil
}

// replyDecision resolves the original correspondent through the correlation
// table and swaps the stored pair: the relay answers as the address the
// original message was sent to. A missing record means a previously valid
// chain disappeared and is surfaced as fatal rather than masked.
func (r *Router) replyDecision(ctx context.Context, msg *mail.Message) (Decision, error) {
	key := correlationKey(msg.InReplyTo)
	slog.Info("message is a reply", "correlation_key", key)

	record, err := r.correlations.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Sender:     record.To,
		Recipient:  record.From,
		Subject:    msg.Subject,
		InReplyTo:  msg.InReplyTo,
		References: msg.References,
	}, nil
}

// composeDecision takes sender, recipient, and subject verbatim from the
// '#'-separated subject line. Malformed arity is a usage error, not policy.
func composeDecision(msg *mail.Message) (Decision, error) {
	from, to, subject, err := parseComposeSubject(msg.Subject)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Sender:    from,
		Recipient: to,
		Subject:   subject,
	}, nil
}

// defaultDecision forwards to the fixed private recipient behind the
// no-reply return path, with the reply alias as Reply-To so a future answer
// can round-trip through the correlation table.
func (r *Router) defaultDecision(msg *mail.Message) Decision {
	return Decision{
		Sender:     displaySender(msg.From, msg.To, r.cfg.NoReplyAddr()),
		Recipient:  r.cfg.Recipient,
		ReplyTo:    r.cfg.ReplyAlias(),
		Subject:    msg.Subject,
		InReplyTo:  msg.InReplyTo,
		References: msg.References,
	}
}

// postCommit performs the bookkeeping writes after a successful dispatch.
// A correlation record is written only when the dispatch was not itself a
// reply completion; a history record only when the inbound recipient is on
// the relay's own domain. The mail is already out, so failures here are
// logged and swallowed rather than bounced or retried.
func (r *Router) postCommit(ctx context.Context, msg *mail.Message, outboundID string) {
	if strings.EqualFold(msg.To, r.cfg.ReplyAlias()) {
		return
	}

	if err := r.correlations.Put(ctx, outboundID, msg.To, msg.From); err != nil {
		slog.Error("failed to write correlation record",
			"message_id", outboundID,
			"error", err,
		)
	}

	if mail.AddrDomain(msg.To) == r.cfg.Domain {
		if err := r.history.Append(ctx, msg.To, msg.From); err != nil {
			slog.Error("failed to write history record", "error", err)
		}
	}
}
