package audit

import "context"

type contextKey string

const ctxKeyClient contextKey = "audit_client"

// Client is the request metadata attached to audit events.
type Client struct {
	IPAddress string
	UserAgent string
}

// ContextWithClient returns a context carrying client metadata for auditing.
func ContextWithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, ctxKeyClient, c)
}

// ClientFromContext extracts client metadata, or the zero Client.
func ClientFromContext(ctx context.Context) Client {
	if c, ok := ctx.Value(ctxKeyClient).(Client); ok {
		return c
	}
	return Client{}
}
