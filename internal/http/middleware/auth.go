// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates the three kinds of callers the API knows about:
//   - parents, through a Bearer token (ParentAuth) and ownership of the
//     child named in the route (OwnsChild)
//   - the browser extension, identified only by the child in the route
//     (KnownChild)
//   - operators, through a shared X-Admin-Token (AdminToken)
//
// Identities are stored in the Gin context and read back with ParentID and
// ChildID.
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parental-backend/internal/auth"
)

const (
	ctxKeyParentID = "parentID"
	ctxKeyChildID  = "childID"

	// HeaderAdminToken carries the operator token.
	HeaderAdminToken = "X-Admin-Token"

	// ChildParam is the route parameter naming the child.
	ChildParam = "childId"
)

// TokenParser validates a bearer token and returns the parent it was issued to.
type TokenParser interface {
	ParseToken(token string) (parentID string, err error)
}

// ChildAuthorizer checks that a child exists and belongs to a parent.
type ChildAuthorizer interface {
	AuthorizeChild(ctx context.Context, parentID, childID string) error
}

// ChildLookup reports whether a child exists.
type ChildLookup func(ctx context.Context, childID string) (bool, error)

// ParentID returns the authenticated parent, or "" when the request is not
// parent-authenticated.
func ParentID(c *gin.Context) string { return ctxString(c, ctxKeyParentID) }

// ChildID returns the child resolved from the route, or "".
func ChildID(c *gin.Context) string { return ctxString(c, ctxKeyChildID) }

// ParentAuth requires "Authorization: Bearer <token>" and stores the parent ID.
func ParentAuth(tp TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := strings.TrimSpace(c.GetHeader("Authorization"))
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		parentID, err := tp.ParseToken(strings.TrimSpace(token))
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		c.Set(ctxKeyParentID, parentID)
		c.Next()
	}
}

// OwnsChild runs after ParentAuth and rejects requests for children that do
// not exist (404) or belong to another parent (403).
func OwnsChild(a ChildAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		childID := c.Param(ChildParam)
		err := a.AuthorizeChild(c.Request.Context(), ParentID(c), childID)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrChildNotFound):
			abortJSON(c, http.StatusNotFound, "not_found", "child not found")
			return
		case errors.Is(err, auth.ErrNotOwner):
			abortJSON(c, http.StatusForbidden, "forbidden", "child belongs to another account")
			return
		default:
			LoggerFrom(c).Error().Err(err).Msg("authorize child")
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		c.Set(ctxKeyChildID, childID)
		c.Next()
	}
}

// KnownChild admits requests whose route child exists.
func KnownChild(exists ChildLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		childID := c.Param(ChildParam)
		ok, err := exists(c.Request.Context(), childID)
		if err != nil {
			LoggerFrom(c).Error().Err(err).Msg("child lookup")
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if !ok {
			abortJSON(c, http.StatusNotFound, "not_found", "child not found")
			return
		}
		c.Set(ctxKeyChildID, childID)
		c.Next()
	}
}

// AdminToken guards operator routes. With an empty configured token the
// routes answer 404 as if they did not exist.
func AdminToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if len(want) == 0 {
			abortJSON(c, http.StatusNotFound, "not_found", "route not found")
			return
		}
		got := []byte(c.GetHeader(HeaderAdminToken))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid admin token")
			return
		}
		c.Next()
	}
}

// abortJSON writes the shared error envelope and counts the rejection.
func abortJSON(c *gin.Context, status int, code, msg string) {
	httpRejected.WithLabelValues(code).Inc()
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}

func ctxString(c *gin.Context, key string) string {
	v, ok := c.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
