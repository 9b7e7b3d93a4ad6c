package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/handler"
)

// DebugUIDHeader carries the caller's uid when development auth is on.
const DebugUIDHeader = "X-Debug-UID"

// TokenVerifier checks a Firebase ID token and returns its uid.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	authClient *auth.Client
	verifier   TokenVerifier
	devAuth    bool
}

func NewAuthMiddleware(ctx context.Context, projectID string, devAuth bool) (*AuthMiddleware, error) {
	if projectID == "" {
		if devAuth {
			return &AuthMiddleware{devAuth: true}, nil
		}
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthMiddleware{authClient: client, verifier: client, devAuth: devAuth}, nil
}

// NewAuthMiddlewareWithVerifier builds the middleware around any verifier;
// handler tests use it with a fake.
func NewAuthMiddlewareWithVerifier(v TokenVerifier, devAuth bool) *AuthMiddleware {
	return &AuthMiddleware{verifier: v, devAuth: devAuth}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.devAuth {
			if uid := strings.TrimSpace(c.Request().Header.Get(DebugUIDHeader)); uid != "" {
				c.Set("uid", uid)
				return next(c)
			}
		}
		tokenStr := bearerToken(c.Request())
		if tokenStr == "" || m.verifier == nil {
			return c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized", "missing token"))
		}
		token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized", "invalid token"))
		}
		c.Set("uid", token.UID)
		return next(c)
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter that browsers use for websocket upgrades.
func bearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

// Client is nil when only development auth is configured.
func (m *AuthMiddleware) Client() *auth.Client {
	return m.authClient
}
