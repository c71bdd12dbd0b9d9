package appMiddleware

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const SessionIDKey contextKey = "sessionID"

const sessionIssuer = "municipio-insights"

// SessionClaims identify an anonymous selection session. Subject holds the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// IssueSessionToken signs an HS256 token for sessionID valid for ttl.
func IssueSessionToken(secret []byte, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseSessionToken validates the token and returns its session id.
func ParseSessionToken(secret []byte, tokenString string) (string, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return claims.Subject, nil
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok && id != ""
}
