// Command relay is the inbound mail handler. It is triggered by an SES
// receipt rule for the relay domain, loads the stored message from S3, and
// routes it: forwarding disposable-alias mail to the private recipient,
// correlating replies back to the original correspondent, and bouncing or
// dropping what policy rejects.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"privaterelay/internal/awsclient"
	"privaterelay/internal/blob"
	"privaterelay/internal/config"
	"privaterelay/internal/logging"
	"privaterelay/internal/mailer"
	"privaterelay/internal/relay"
	"privaterelay/internal/store"
)

type handler struct {
	router *relay.Router
}

// handle routes every receipt record in the event. A routing error aborts
// the invocation so the receipt is retried or dead-lettered upstream.
func (h *handler) handle(ctx context.Context, event events.SimpleEmailEvent) error {
	if len(event.Records) == 0 {
		return fmt.Errorf("event contains no receipt records")
	}

	for _, record := range event.Records {
		messageID := record.SES.Mail.MessageID
		slog.Info("processing inbound message", "message_id", messageID)

		result, err := h.router.Route(ctx, messageID)
		if err != nil {
			slog.Error("routing failed", "message_id", messageID, "error", err)
			return err
		}

		slog.Info("inbound message routed",
			"message_id", messageID,
			"outcome", result.Outcome.String(),
			"outbound_id", result.MessageID,
		)
	}

	return nil
}

func main() {
	// Errors before the configuration loads still go through the JSON
	// handler at the default level.
	logging.Setup("")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level)

	awsCfg, err := awsclient.Load(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	router := relay.NewRouter(
		cfg,
		blob.NewStore(s3.NewFromConfig(awsCfg), cfg.Bucket),
		relay.NewBlocklist(store.NewBlocklist(dynamoClient)),
		store.NewCorrelations(dynamoClient, cfg.RecordTTL),
		store.NewHistory(dynamoClient, cfg.HistoryTTL),
		mailer.NewSender(sesv2.NewFromConfig(awsCfg)),
		mailer.NewBouncer(ses.NewFromConfig(awsCfg), cfg.BounceAddr()),
	)

	h := &handler{router: router}
	lambda.Start(h.handle)
}
