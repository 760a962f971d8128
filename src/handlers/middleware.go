package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"eventconnect_services/src/logging"
	m "eventconnect_services/src/models"

	"firebase.google.com/go/v4/auth"
	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// TokenVerifier checks a Firebase ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// ProfileClaims carries the profile fields Firebase puts in an ID token.
type ProfileClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func (c *ProfileClaims) Validate(ctx context.Context) error {
	return nil
}

// FirebaseTokenValidator adapts verifier to the jwt middleware. The validated
// claims carry the Firebase uid as subject.
func FirebaseTokenValidator(verifier TokenVerifier) jwtmiddleware.ValidateToken {
	return func(ctx context.Context, tokenString string) (interface{}, error) {
		token, err := verifier.VerifyIDToken(ctx, tokenString)
		if err != nil {
			return nil, err
		}
		profile := &ProfileClaims{}
		profile.Name, _ = token.Claims["name"].(string)
		profile.Email, _ = token.Claims["email"].(string)
		profile.Picture, _ = token.Claims["picture"].(string)

		return &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{
				Issuer:   token.Issuer,
				Subject:  token.UID,
				Audience: []string{token.Audience},
				Expiry:   token.Expires,
				IssuedAt: token.IssuedAt,
			},
			CustomClaims: profile,
		}, nil
	}
}

// RequireFirebaseUser rejects requests without a valid ID token in the
// Authorization header or the token query parameter. Websocket clients use
// the latter.
func RequireFirebaseUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	middleware := jwtmiddleware.New(
		FirebaseTokenValidator(verifier),
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Resolve(r.Context(), nil).InfoContext(r.Context(), "rejected token", "error", err)
			if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
				WriteErrorToWriter(w, http.StatusUnauthorized, "Missing token")
				return
			}
			WriteErrorToWriter(w, http.StatusUnauthorized, "Invalid token")
		}),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.ParameterTokenExtractor("token"),
		)),
	)
	return middleware.CheckJWT
}

// CurrentUser is the authenticated user of r as a participant summary.
func CurrentUser(r *http.Request) (m.UserSimple, bool) {
	claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return m.UserSimple{}, false
	}
	user := m.UserSimple{UserID: claims.RegisteredClaims.Subject}
	if profile, ok := claims.CustomClaims.(*ProfileClaims); ok {
		user.Name = profile.Name
		user.Email = profile.Email
		user.PhotoURL = profile.Picture
	}
	return user, true
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
