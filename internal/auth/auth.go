package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when the Authorization header is absent or malformed.
var ErrNoToken = errors.New("authorization header is missing or invalid")

// ErrInvalidToken is returned when a presented token fails verification.
var ErrInvalidToken = errors.New("invalid token")

type contextKey string

const userContextKey contextKey = "auth/userID"

// Claims carries the identity embedded in a bearer token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Verifier signs and verifies HS256 bearer tokens. Tokens are always verified
// against the shared secret before any claim is trusted.
type Verifier struct {
	Secret []byte
}

// Issue builds a signed token for the given user id.
func (v Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	if len(v.Secret) == 0 {
		return "", errors.New("signing secret missing")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.Secret)
}

// Parse verifies the token signature and expiry and returns its claims.
func (v Verifier) Parse(tokenStr string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}

// FromRequest extracts and verifies the bearer token on the request.
func (v Verifier) FromRequest(r *http.Request) (Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Claims{}, ErrNoToken
	}
	return v.Parse(strings.TrimPrefix(header, "Bearer "))
}

// RequireUser verifies the bearer token and stores the user id in context,
// or responds 401.
func (v Verifier) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := v.FromRequest(r)
		if err != nil {
			msg := `{"error":"Authorization header is missing or invalid"}`
			if errors.Is(err, ErrInvalidToken) {
				msg = `{"error":"Invalid token"}`
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(msg))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}

// WithUserID stores the authenticated user id in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserID extracts the authenticated user id from context if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userContextKey).(string)
	return id, ok && id != ""
}
