// Command compose serves a small authenticated web form for sending a
// one-off message from an arbitrary local part on the relay domain.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"privaterelay/internal/awsclient"
	"privaterelay/internal/config"
	"privaterelay/internal/logging"
	"privaterelay/internal/mailer"
	"privaterelay/internal/web"
)

type handler struct {
	auth    *web.Auth
	compose *web.Compose
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if !h.auth.Check(req) {
		return web.Unauthorized(), nil
	}
	return h.compose.Handle(ctx, req)
}

func main() {
	logging.Setup("")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateCompose(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level)

	awsCfg, err := awsclient.Load(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	h := &handler{
		auth:    web.NewAuth(cfg.Web.AuthToken),
		compose: web.NewCompose(mailer.NewSender(sesv2.NewFromConfig(awsCfg)), cfg.Domain),
	}
	lambda.Start(h.handle)
}
