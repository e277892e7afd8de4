// Package web implements the basic-auth'd compose form and statistics page
// served from the HTTP entrypoints.
package web

import (
	"crypto/subtle"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Auth verifies the Basic authorization header against a configured token.
// The token is the pre-encoded base64("username:password") value.
type Auth struct {
	token string
}

// NewAuth creates an Auth check for the given token.
func NewAuth(token string) *Auth {
	return &Auth{token: token}
}

// Check reports whether the request carries valid credentials. An empty
// configured token rejects everything.
func (a *Auth) Check(req events.APIGatewayV2HTTPRequest) bool {
	if a.token == "" {
		return false
	}

	header := req.Headers["authorization"]
	scheme, credentials, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(credentials), []byte(a.token)) == 1
}

// Unauthorized is the 401 response challenging the client for credentials.
func Unauthorized() events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: 401,
		Headers: map[string]string{
			"WWW-Authenticate": `Basic realm="Private Relay", charset="UTF-8"`,
		},
	}
}
