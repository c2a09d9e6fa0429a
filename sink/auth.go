// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import "net/http"

// Authenticator attaches credentials to outgoing ingestion requests.
// The delivery worker holds queued payloads while IsReady is false,
// so credentials fetched asynchronously (token exchange, metadata
// service) delay delivery instead of losing telemetry.
type Authenticator interface {
	// IsReady reports whether credentials are available. The worker
	// polls this before each drain pass.
	IsReady() bool

	// Sign attaches credentials to the request. A false return means
	// signing failed and the request must be dropped, not sent
	// unauthenticated.
	Sign(request *http.Request) bool
}

// NoopAuthenticator sends requests without credentials, for local or
// trusted-network ingestion endpoints.
type NoopAuthenticator struct{}

func (NoopAuthenticator) IsReady() bool           { return true }
func (NoopAuthenticator) Sign(*http.Request) bool { return true }

// StaticTokenAuthenticator signs every request with a fixed bearer
// token.
type StaticTokenAuthenticator struct {
	token string
}

// NewStaticTokenAuthenticator wraps a bearer token. An empty token is
// accepted but never ready.
func NewStaticTokenAuthenticator(token string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{token: token}
}

func (a *StaticTokenAuthenticator) IsReady() bool { return a.token != "" }

func (a *StaticTokenAuthenticator) Sign(request *http.Request) bool {
	if a.token == "" {
		return false
	}
	request.Header.Set("Authorization", "Bearer "+a.token)
	return true
}
