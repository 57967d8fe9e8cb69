package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued for patients. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier validates HMAC-signed bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier for tokens signed with secret. An empty
// issuer disables the issuer check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

// Verify parses the token and returns the user it asserts.
func (v *Verifier) Verify(tokenString string) (User, error) {
	if v == nil || len(v.secret) == 0 {
		return User{}, errors.New("identity: verifier not configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return User{}, ErrNotAuthenticated
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return User{}, ErrNotAuthenticated
	}
	return User{ID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs a token for user. Used by the seed tool and tests.
func (v *Verifier) Issue(user User, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: user.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Authenticate attaches the user asserted by a bearer token to the request
// context. Requests without a token pass through anonymously; an invalid
// token is rejected. Browsers cannot set headers on WebSocket upgrades, so the
// access_token query parameter is accepted as well.
func Authenticate(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := v.Verify(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Require rejects requests that were not authenticated.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
