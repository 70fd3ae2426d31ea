// Package platform wraps the social platform's private web API behind a
// small capability interface. All knowledge about wire formats, endpoints
// and failure classification lives here; callers only ever see error
// kinds, never response bodies.
package platform

import "context"

// Client is the per-account handle for platform actions.
type Client interface {
	// SetProxy routes all subsequent requests through the given proxy URL.
	SetProxy(proxy string) error

	// Login authenticates with credentials. twofa may be empty.
	Login(ctx context.Context, username, password, twofa string) error

	// ExportSession serializes the authenticated state (cookies, tokens)
	// into an opaque blob; ImportSession restores it on a fresh client.
	ExportSession() ([]byte, error)
	ImportSession(blob []byte) error

	// ResolveMediaID converts a public post URL into the platform's
	// internal media identifier.
	ResolveMediaID(ctx context.Context, postURL string) (string, error)

	Like(ctx context.Context, mediaID string) error
	Comment(ctx context.Context, mediaID, text string) error

	// RawRequest posts a form payload to a private API endpoint and
	// returns the decoded response body. It is the low-level escape
	// hatch used by the fallback comment path.
	RawRequest(ctx context.Context, endpoint string, payload map[string]string) (map[string]any, error)
}

// Factory creates a fresh, unauthenticated client. One client is created
// per account so that proxies and sessions never leak across accounts.
type Factory func() Client
