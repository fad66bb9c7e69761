package artworks

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"paintbox/core"
	"paintbox/gallery"
	"paintbox/middleware"
)

// deleteConfirmWindow is how long a delete request stays armed waiting for
// its confirmation call. Past the window the next request arms again
// instead of deleting.
const deleteConfirmWindow = 3 * time.Second

// ConfirmTracker remembers, per owner, which artwork a delete was
// requested for and until when the confirmation is accepted. Arming a
// delete for a different artwork supersedes the previous one.
type ConfirmTracker struct {
	mu      sync.Mutex
	window  time.Duration
	byOwner map[string]pendingDelete
}

type pendingDelete struct {
	artworkID string
	expires   time.Time
}

func NewConfirmTracker() *ConfirmTracker {
	return &ConfirmTracker{
		window:  deleteConfirmWindow,
		byOwner: make(map[string]pendingDelete),
	}
}

// Confirm reports whether a delete for this artwork was already armed and
// is still inside the window. If not, it arms the delete and returns the
// remaining window.
func (c *ConfirmTracker) Confirm(owner, artworkID string) (confirmed bool, window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	p, ok := c.byOwner[owner]
	if ok && p.artworkID == artworkID && now.Before(p.expires) {
		delete(c.byOwner, owner)
		return true, 0
	}
	c.byOwner[owner] = pendingDelete{artworkID: artworkID, expires: now.Add(c.window)}
	return false, c.window
}

func requestClaims(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "User claims not found"})
		return "", false
	}
	return claims.Subject, true
}

func HandleListArtworks(g *gallery.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requestClaims(w, r)
		if !ok {
			return
		}
		render.JSON(w, r, g.List(r.Context(), owner))
	}
}

func HandleGetArtwork(g *gallery.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requestClaims(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		art, err := g.Get(r.Context(), owner, id)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Artwork not found"})
			return
		}
		render.JSON(w, r, art)
	}
}

func HandleRenameArtwork(g *gallery.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requestClaims(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")

		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		art, err := g.Rename(r.Context(), owner, id, body.Title)
		if err != nil {
			if errors.Is(err, core.ErrArtworkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Artwork not found"})
				return
			}
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		art.Scene = ""
		render.JSON(w, r, art)
	}
}

// HandleDeleteArtwork implements the two-step delete: the first call arms
// the delete and reports the confirmation window, a second call for the
// same artwork inside the window performs it.
func HandleDeleteArtwork(g *gallery.Gallery, confirms *ConfirmTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requestClaims(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")

		if _, err := g.Get(r.Context(), owner, id); err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Artwork not found"})
			return
		}

		confirmed, window := confirms.Confirm(owner, id)
		if !confirmed {
			render.Status(r, http.StatusAccepted)
			render.JSON(w, r, map[string]interface{}{
				"status":      "confirm_required",
				"expiresInMs": window.Milliseconds(),
			})
			return
		}

		if !g.Delete(r.Context(), owner, id) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Artwork not found"})
			return
		}
		logrus.WithFields(logrus.Fields{"artworkId": id, "owner": owner}).Info("Artwork delete confirmed")
		render.JSON(w, r, map[string]string{"status": "deleted"})
	}
}
