package web

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// SimpleSender sends a plain text message and returns its message id.
type SimpleSender interface {
	SendSimple(ctx context.Context, from, to, subject, body string) (string, error)
}

// Compose serves the send form and handles its submission. The From field
// is a bare local part; the relay domain is appended before sending.
type Compose struct {
	sender SimpleSender
	domain string
}

// NewCompose creates a Compose handler sending from the given domain.
func NewCompose(sender SimpleSender, domain string) *Compose {
	return &Compose{
		sender: sender,
		domain: domain,
	}
}

var composePageTemplate = template.Must(template.New("compose").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Private Relay - Create</title>
<style>
body { margin: 1em; font-family: sans-serif; }
label { display: block; margin: 0.5em 0 0.2em; }
input[type="text"], input[type="email"], textarea { padding: 0.5em 0.6em; border: 1px solid #ccc; border-radius: 4px; width: 600px; box-sizing: border-box; }
button { padding: 0.5em 1em; }
</style>
</head>
<body>
<h1>Private Relay - Create</h1>
{{.Content}}
</body>
</html>
`))

var composeFormTemplate = template.Must(template.New("form").Parse(`<form action="/send" method="POST">
<fieldset>
<legend>Send email</legend>
<label for="from">From (@{{.Domain}} will automatically be appended)</label>
<input type="text" id="from" name="from" placeholder="someone" />
<label for="to">To</label>
<input type="email" id="to" name="to" placeholder="user@domain.tld" />
<label for="subject">Subject</label>
<input type="text" id="subject" name="subject" placeholder="Hi, how are you?" />
<label for="body">Body</label>
<textarea id="body" name="body" rows="40" cols="40"></textarea>
<button type="submit">Send</button>
</fieldset>
</form>
`))

var composeResultTemplate = template.Must(template.New("result").Parse(`<div>{{.Message}}</div>
<div><a href="/">Back to create page</a></div>
`))

// Handle serves the compose form on any route and performs the send on
// "POST /send".
func (c *Compose) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.RouteKey == "POST /send" {
		return c.handleSend(ctx, req)
	}
	return c.handleForm()
}

func (c *Compose) handleForm() (events.APIGatewayV2HTTPResponse, error) {
	var content strings.Builder
	if err := composeFormTemplate.Execute(&content, struct{ Domain string }{c.domain}); err != nil {
		return events.APIGatewayV2HTTPResponse{}, fmt.Errorf("failed to render form: %w", err)
	}
	return htmlPage(content.String())
}

func (c *Compose) handleSend(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	form, err := parseForm(req)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: 400,
			Body:       "bad request",
			Headers:    map[string]string{"Content-Type": "text/plain"},
		}, nil
	}

	from := form.Get("from") + "@" + c.domain

	// The transport error message is shown on the result page rather than
	// failing the invocation; a typo'd recipient is a user problem.
	var message string
	messageID, err := c.sender.SendSimple(ctx, from, form.Get("to"), form.Get("subject"), form.Get("body"))
	if err != nil {
		message = err.Error()
	} else {
		message = fmt.Sprintf("Message with Message-ID '%s' sent!", messageID)
	}

	var content strings.Builder
	if err := composeResultTemplate.Execute(&content, struct{ Message string }{message}); err != nil {
		return events.APIGatewayV2HTTPResponse{}, fmt.Errorf("failed to render result: %w", err)
	}
	return htmlPage(content.String())
}

// parseForm decodes the form-encoded request body, honoring the base64
// wrapping the HTTP event payload applies.
func parseForm(req events.APIGatewayV2HTTPRequest) (url.Values, error) {
	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode request body: %w", err)
		}
		body = string(decoded)
	}

	form, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse form body: %w", err)
	}

	return form, nil
}

// htmlPage wraps rendered content in the base page and a 200 response.
func htmlPage(content string) (events.APIGatewayV2HTTPResponse, error) {
	var page strings.Builder
	err := composePageTemplate.Execute(&page, struct{ Content template.HTML }{template.HTML(content)})
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, fmt.Errorf("failed to render page: %w", err)
	}

	return events.APIGatewayV2HTTPResponse{
		StatusCode: 200,
		Body:       page.String(),
		Headers:    map[string]string{"Content-Type": "text/html"},
	}, nil
}
