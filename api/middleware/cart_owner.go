package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/api/responses"
	pkgAuth "github.com/angelmondragon/conduit-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

// CartOwnerHeader carries the pseudonymous owner of an anonymous cart.
const CartOwnerHeader = "X-Cart-Owner"

// CartOwner resolves whose cart a request addresses. Authenticated requests use
// the user id; anonymous ones must send a UUID in X-Cart-Owner.
func CartOwner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var owner string
			if p := pkgAuth.PrincipalFromContext(r.Context()); p != nil {
				owner = p.UserID.String()
			} else {
				raw := strings.TrimSpace(r.Header.Get(CartOwnerHeader))
				if raw == "" {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, CartOwnerHeader+" header required"))
					return
				}
				id, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, CartOwnerHeader+" must be a uuid"))
					return
				}
				owner = id.String()
			}

			ctx := WithCartOwner(r.Context(), owner)
			if logg != nil {
				ctx = logg.WithOwnerID(ctx, owner)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
