package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const SessionTokenKey = "session_token"

// SessionMiddleware copies the browser's session token into Locals. The token
// comes from the session cookie, the "token" query parameter (websocket
// clients) or a Bearer Authorization header, in that order. It is not
// verified here; the auth provider of each view does that.
func SessionMiddleware(cookieName string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := ctx.Cookies(cookieName)
		if token == "" {
			token = ctx.Query("token")
		}
		if token == "" {
			authHeader := ctx.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimSpace(authHeader[7:])
			}
		}
		ctx.Locals(SessionTokenKey, token)
		return ctx.Next()
	}
}

// SessionToken reads the token stored by SessionMiddleware.
func SessionToken(ctx *fiber.Ctx) string {
	token, _ := ctx.Locals(SessionTokenKey).(string)
	return token
}
