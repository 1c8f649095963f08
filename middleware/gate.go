package middleware

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Page paths the gate knows about.
const (
	SignInPath = "/sign-in"
	ChatPath   = "/chat"
)

// ProtectedPrefixes need a session.
var ProtectedPrefixes = []string{"/chat", "/picks"}

// UserChecker confirms a session's user still exists.
type UserChecker interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}

// Gate redirects page requests based on the session:
// without one, protected pages go to the sign-in page; with one, the sign-in
// page goes to the chat page. Every other request passes through.
//
// A store error while confirming the session lets the request through
// unchanged.
func Gate(key []byte, users UserChecker, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if strings.HasPrefix(path, "/api/") || IsAsset(path) {
				return next(c)
			}

			hasSession := false
			if claims, err := ParseToken(TokenFromRequest(c.Request()), key); err == nil {
				exists, err := users.UserExists(c.Request().Context(), claims.UserID)
				if err != nil {
					log.Warn("session lookup failed, letting request through",
						zap.String("path", path), zap.Error(err))
					return next(c)
				}
				hasSession = exists
			}

			switch {
			case !hasSession && isProtected(path):
				return c.Redirect(http.StatusFound, SignInPath+"?next="+url.QueryEscape(path))
			case hasSession && path == SignInPath:
				return c.Redirect(http.StatusFound, ChatPath)
			}
			return next(c)
		}
	}
}

func isProtected(path string) bool {
	for _, p := range ProtectedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// assetExts are the file types the UI bundle ships.
var assetExts = map[string]bool{
	".js": true, ".mjs": true, ".css": true, ".map": true, ".json": true,
	".html": true, ".txt": true, ".webmanifest": true, ".ico": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".avif": true, ".woff": true, ".woff2": true, ".ttf": true,
}

// IsAsset reports whether the last segment of p names a bundle file.
func IsAsset(p string) bool {
	return assetExts[strings.ToLower(path.Ext(path.Base(p)))]
}
