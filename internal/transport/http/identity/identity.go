// Package identity reads the caller identity resolved by the upstream
// gateway. It authorises nothing beyond the admin-only gate.
package identity

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gestorventas/deposito/internal/presentation/http/response"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

// Headers set by the upstream authentication layer.
const (
	HeaderSellerID = "X-Seller-ID"
	HeaderRole     = "X-Seller-Role"
)

// RoleAdmin marks administrative callers.
const RoleAdmin = "ADMIN"

const contextKey = "deposito.actor"

// Actor is the resolved caller.
type Actor struct {
	SellerID int64
	Admin    bool
}

// Scope returns the seller id that operations must be restricted to, or nil
// for administrators.
func (a Actor) Scope() *int64 {
	if a.Admin {
		return nil
	}
	id := a.SellerID
	return &id
}

// Middleware resolves the Actor from request headers. Non-admin callers must
// carry a seller id.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := parse(c.Request().Header.Get(HeaderSellerID), c.Request().Header.Get(HeaderRole))
			if err != nil {
				return response.New(c).WithError(err).Build()
			}
			c.Set(contextKey, actor)
			return next(c)
		}
	}
}

// RequireAdmin rejects callers that are not administrators. It must run after
// Middleware.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !FromContext(c).Admin {
			return response.New(c).WithError(errorbank.PermissionDenied("administrator role required")).Build()
		}
		return next(c)
	}
}

// FromContext returns the Actor stored by Middleware. A request that never
// passed through Middleware yields a zero, non-admin Actor.
func FromContext(c echo.Context) Actor {
	actor, _ := c.Get(contextKey).(Actor)
	return actor
}

func parse(rawID, rawRole string) (Actor, error) {
	actor := Actor{Admin: strings.EqualFold(strings.TrimSpace(rawRole), RoleAdmin)}

	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		if actor.Admin {
			return actor, nil
		}
		return Actor{}, errorbank.PermissionDenied("missing seller identity")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return Actor{}, errorbank.InvalidArgument("invalid seller identity", errorbank.WithDetail("header", HeaderSellerID))
	}
	actor.SellerID = id
	return actor, nil
}
