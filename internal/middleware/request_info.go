package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/service/auth"
)

const sessionMetaKey = "session_meta"

// RequestInfo records the client address and user agent, preferring the
// address set by Cloudflare or the first hop of X-Forwarded-For.
func RequestInfo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.Get("CF-Connecting-IP")
		if ip == "" {
			if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
				ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
			}
		}
		if ip == "" {
			ip = c.IP()
		}

		c.Locals(sessionMetaKey, &auth.SessionMeta{
			UserAgent: c.Get(fiber.HeaderUserAgent),
			IPAddress: ip,
		})
		return c.Next()
	}
}

func GetSessionMeta(c *fiber.Ctx) *auth.SessionMeta {
	meta, ok := c.Locals(sessionMetaKey).(*auth.SessionMeta)
	if !ok {
		return &auth.SessionMeta{UserAgent: c.Get(fiber.HeaderUserAgent), IPAddress: c.IP()}
	}
	return meta
}
