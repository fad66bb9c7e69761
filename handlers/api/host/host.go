package host

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"paintbox/middleware"
)

// HandleReady acknowledges the client's report that its first frame is up.
// The embedding host hides its loading placeholder on this signal.
func HandleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}
		logrus.WithField("owner", claims.Subject).Debug("Client reported ready")
		render.NoContent(w, r)
	}
}

// HandleContext reports the embedding context for the verified launch. A
// request can only get here with a token minted from a verified launch, so
// embedded is always true; clients blocked outside the host never obtain a
// token in the first place.
func HandleContext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}
		render.JSON(w, r, map[string]interface{}{
			"embedded": true,
			"user":     claims.User(),
		})
	}
}
