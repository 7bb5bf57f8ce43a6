package http

import (
	"net"
	"strings"

	constant "github.com/ProveniaLabs/lib-admission/admission/constants"
	"github.com/ProveniaLabs/lib-admission/admission/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// Resolver derives the admission identity from a request.
type Resolver interface {
	Resolve(c *fiber.Ctx) ratelimit.Identity
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(c *fiber.Ctx) ratelimit.Identity

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(c *fiber.Ctx) ratelimit.Identity {
	return f(c)
}

// DefaultResolver maps bearer tokens to the token namespace and everything
// else to the client address. Malformed forwarding headers are ignored
// silently, the request is still admitted under whatever address remains.
type DefaultResolver struct{}

// Resolve implements Resolver.
func (DefaultResolver) Resolve(c *fiber.Ctx) ratelimit.Identity {
	if token := bearerToken(c); token != "" {
		return ratelimit.Identity{Namespace: ratelimit.NamespaceToken, ID: token}
	}

	return ratelimit.Identity{Namespace: ratelimit.NamespaceIP, ID: ClientIP(c)}
}

// ResolveByHeader builds identities from a custom header, for example a
// tenant id, falling back to the client address when the header is absent.
func ResolveByHeader(header, namespace string) Resolver {
	return ResolverFunc(func(c *fiber.Ctx) ratelimit.Identity {
		if value := strings.TrimSpace(c.Get(header)); value != "" {
			return ratelimit.Identity{Namespace: namespace, ID: value}
		}

		return ratelimit.Identity{Namespace: ratelimit.NamespaceIP, ID: ClientIP(c)}
	})
}

// ClientIP returns the originating client address. Behind proxies the
// leftmost X-Forwarded-For entry wins, then X-Real-Ip, then the socket
// address. Entries that do not parse as an address are skipped without
// logging.
func ClientIP(c *fiber.Ctx) string {
	if ip := leftmostForwardedIP(c.Get(constant.HeaderForwardedFor)); ip != "" {
		return ip
	}

	if ip := normalizeIP(c.Get(constant.HeaderRealIP)); ip != "" {
		return ip
	}

	return c.IP()
}

// leftmostForwardedIP extracts the first X-Forwarded-For entry, which is the
// address the client presented before any proxy appended its own.
func leftmostForwardedIP(header string) string {
	if header == "" {
		return ""
	}

	leftmost := header
	if idx := strings.IndexByte(header, ','); idx >= 0 {
		leftmost = header[:idx]
	}

	return normalizeIP(leftmost)
}

// normalizeIP trims, strips an optional port and validates the address,
// returning "" when it does not parse. The parsed form is rendered back so
// equivalent spellings of one address always produce one identity.
func normalizeIP(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}

	ip := net.ParseIP(value)
	if ip == nil {
		return ""
	}

	return ip.String()
}

// bearerToken extracts the credential token from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(constant.Authorization)
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], constant.Bearer) {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
