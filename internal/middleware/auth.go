package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shinyyama/agri-marketplace/internal/reqctx"
)

const (
	ctxActorKey = "actor"
	ctxUIDKey   = "uid"

	roleClaim = "role"

	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// TokenVerifier is the part of *auth.Client used to check ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware verifies Firebase ID tokens. A nil verifier switches to
// header identity (X-User-ID / X-User-Role), for development only.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var (
			uid     string
			rawRole string
		)
		if m.verifier == nil {
			uid = strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
			rawRole = c.Request().Header.Get(HeaderUserRole)
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing "+HeaderUserID))
			}
		} else {
			authz := c.Request().Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing bearer token"))
			}
			token, err := m.verifier.VerifyIDToken(c.Request().Context(), strings.TrimPrefix(authz, "Bearer "))
			if err != nil {
				log.Printf("[auth] rid=%s stage=verify_fail err=%v", reqctx.RID(c.Request().Context()), err)
				return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "invalid token"))
			}
			uid = token.UID
			rawRole, _ = token.Claims[roleClaim].(string)
		}

		role, err := model.ParseRole(rawRole)
		if err != nil {
			return c.JSON(http.StatusForbidden, errorBody("forbidden", err.Error()))
		}
		actor := model.Actor{UID: uid, Role: role}
		c.Set(ctxUIDKey, uid)
		c.Set(ctxActorKey, actor)
		c.SetRequest(c.Request().WithContext(reqctx.WithActorUID(c.Request().Context(), uid)))
		return next(c)
	}
}

// Actor returns the identity resolved by RequireAuth.
func Actor(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(ctxActorKey).(model.Actor)
	return a, ok && a.UID != ""
}

// errorBody mirrors the handler envelope; middleware cannot import handler.
func errorBody(code, message string) map[string]map[string]string {
	return map[string]map[string]string{"error": {"code": code, "message": message}}
}
