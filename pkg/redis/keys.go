package redis

import "strings"

const keyNamespace = "sf"

// Key scopes. Every key the storefront writes starts with keyNamespace and one
// of these, so a single SCAN pattern finds all keys of a kind.
const (
	scopeIdempotency = "idempotency"
	scopeRateLimit   = "rate_limit"
	scopeSession     = "session"
	scopeMagicLink   = "magic_link"
	scopeLock        = "lock"
)

// key joins non-empty parts under the namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey namespaces a stored response or a processed-event marker.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key(scopeIdempotency, scope, id)
}

// RateLimitKey namespaces a fixed-window counter.
func (c *Client) RateLimitKey(scope string) string {
	return key(scopeRateLimit, scope)
}

// AccessSessionKey namespaces the session record of one access token.
func (c *Client) AccessSessionKey(accessID string) string {
	return key(scopeSession, "access", accessID)
}

// MagicLinkKey namespaces a hashed sign-in link token.
func (c *Client) MagicLinkKey(tokenHash string) string {
	return key(scopeMagicLink, tokenHash)
}

// LockKey namespaces a fleet-wide lock.
func (c *Client) LockKey(name string) string {
	return key(scopeLock, name)
}
