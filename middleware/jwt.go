package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// SessionCookie carries the session token for browser requests.
const SessionCookie = "wg_session"

// Context keys set by RequireSession.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// ErrNoSession means the request carried no usable session token.
var ErrNoSession = errors.New("no session")

// Claims extends jwt.RegisteredClaims with application-specific fields.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	UserHash string `json:"user_hash"`
	jwt.RegisteredClaims
}

// UserHashFromUsername returns a deterministic HMAC hash for the given username and key.
func UserHashFromUsername(username string, key []byte) string {
	normalized := strings.ToLower(strings.TrimSpace(username))
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(normalized))
	return hex.EncodeToString(mac.Sum(nil))
}

// IssueToken signs an HS256 session token for the user valid for ttl.
func IssueToken(userID int64, username string, key []byte, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := &Claims{
		UserID:   userID,
		Username: username,
		UserHash: UserHashFromUsername(username, key),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// TokenFromRequest returns the session token from the Authorization header
// (with or without the Bearer prefix) or from the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return h
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// ParseToken validates a session token and checks that its user hash was
// issued with key.
func ParseToken(token string, key []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if !hmac.Equal([]byte(claims.UserHash), []byte(UserHashFromUsername(claims.Username, key))) {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// RequireSession returns an Echo middleware that rejects requests without a
// valid session, or whose user no longer exists, with 401 Unauthorized.
func RequireSession(key []byte, users UserChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := ParseToken(TokenFromRequest(c.Request()), key)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			exists, err := users.UserExists(c.Request().Context(), claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
			}
			if !exists {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(UsernameKey, claims.Username)
			return next(c)
		}
	}
}

// UserID returns the id stored by RequireSession.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(UserIDKey).(int64)
	return id, ok && id > 0
}
