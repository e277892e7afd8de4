// Command web serves the authenticated statistics page: per-alias delivery
// counts from the history table and the current blocklist contents.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"privaterelay/internal/awsclient"
	"privaterelay/internal/config"
	"privaterelay/internal/logging"
	"privaterelay/internal/store"
	"privaterelay/internal/web"
)

type handler struct {
	auth  *web.Auth
	stats *web.Stats
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if !h.auth.Check(req) {
		return web.Unauthorized(), nil
	}

	page, err := h.stats.Render(ctx)
	if err != nil {
		slog.Error("failed to render statistics", "error", err)
		return events.APIGatewayV2HTTPResponse{}, err
	}

	return events.APIGatewayV2HTTPResponse{
		StatusCode: 200,
		Body:       page,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}, nil
}

func main() {
	logging.Setup("")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateWeb(); err != nil {
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

	h := &handler{
		auth:  web.NewAuth(cfg.Web.AuthToken),
		stats: web.NewStats(store.NewHistory(dynamoClient, cfg.HistoryTTL), store.NewBlocklist(dynamoClient)),
	}
	lambda.Start(h.handle)
}
