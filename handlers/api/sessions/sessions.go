package sessions

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"paintbox/core"
	"paintbox/editor"
	"paintbox/gallery"
	"paintbox/middleware"
	"paintbox/raster"
)

func requestClaims(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "User claims not found"})
		return "", false
	}
	return claims.Subject, true
}

// sessionFromRequest resolves the {id} route param to a session owned by
// the caller. Foreign sessions get the same 404 as unknown ones.
func sessionFromRequest(w http.ResponseWriter, r *http.Request, reg *editor.Registry) (*editor.Session, string, bool) {
	owner, ok := requestClaims(w, r)
	if !ok {
		return nil, "", false
	}
	s, err := reg.Get(chi.URLParam(r, "id"))
	if err != nil || s.Owner() != owner {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Session not found"})
		return nil, "", false
	}
	return s, owner, true
}

// HandleOpenSession starts an editing session. With an artworkId that still
// resolves the saved snapshot is loaded and history reseeds to it; absent
// or stale ids start a fresh canvas.
func HandleOpenSession(reg *editor.Registry, g *gallery.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requestClaims(w, r)
		if !ok {
			return
		}

		var body struct {
			ArtworkID string  `json:"artworkId"`
			FitZoom   float64 `json:"fitZoom"`
		}
		// An empty body opens a fresh canvas at the default zoom.
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		s := reg.Open(owner, body.FitZoom)
		if body.ArtworkID != "" {
			art, err := g.Get(r.Context(), owner, body.ArtworkID)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"artworkId": body.ArtworkID,
					"owner":     owner,
				}).Warn("Requested artwork no longer exists, opening fresh canvas")
			} else if err := s.LoadSnapshot([]byte(art.Scene)); err != nil {
				logrus.WithError(err).WithField("artworkId", art.ID).Warn("Saved scene unreadable, opening fresh canvas")
			} else {
				s.SetArtworkID(art.ID)
			}
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, s.State())
	}
}

func HandleGetSession(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}
		render.JSON(w, r, s.State())
	}
}

// HandleSessionEvents consumes a batch of typed scene events in order.
func HandleSessionEvents(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}

		var body struct {
			Events []editor.Event `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if err := s.ApplyBatch(body.Events); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, s.State())
	}
}

func HandleUndo(reg *editor.Registry) http.HandlerFunc {
	return historyStep(reg, (*editor.Session).Undo)
}

func HandleRedo(reg *editor.Registry) http.HandlerFunc {
	return historyStep(reg, (*editor.Session).Redo)
}

// historyStep shares the undo/redo response discipline: 409 while a load
// is pending, noop at the stack boundary, otherwise the snapshot the
// client must apply.
func historyStep(reg *editor.Registry, step func(*editor.Session) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}

		snap, err := step(s)
		if err != nil {
			if errors.Is(err, core.ErrLoadPending) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, map[string]string{"error": "A snapshot load is already in progress"})
				return
			}
			logrus.WithError(err).WithField("sessionId", s.ID()).Error("History step failed")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "History step failed"})
			return
		}
		if snap == nil {
			render.JSON(w, r, map[string]interface{}{"status": "noop", "state": s.State()})
			return
		}
		render.JSON(w, r, map[string]interface{}{
			"status":   "ok",
			"snapshot": json.RawMessage(snap),
			"state":    s.State(),
		})
	}
}

func HandleSetTool(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}

		var tool editor.Tool
		if err := json.NewDecoder(r.Body).Decode(&tool); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if err := s.SetTool(tool); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, s.State())
	}
}

// HandleToggleSelectionLock flips the lock state of the whole selection as
// one unit.
func HandleToggleSelectionLock(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}
		locked, err := s.ToggleLock()
		if err != nil {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, map[string]interface{}{"locked": locked, "state": s.State()})
	}
}

// HandleDeleteSelection removes the selected objects; locked ones are
// skipped.
func HandleDeleteSelection(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}
		removed, err := s.DeleteSelection()
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		if removed == nil {
			removed = []string{}
		}
		render.JSON(w, r, map[string]interface{}{"removed": removed, "state": s.State()})
	}
}

// HandleSaveArtwork captures the session's scene into the gallery,
// overwriting the artwork the session already references or creating a new
// entry.
func HandleSaveArtwork(reg *editor.Registry, g *gallery.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, owner, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}

		var body struct {
			Thumbnail string `json:"thumbnail"`
			Title     string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		thumbnail := body.Thumbnail
		if thumbnail != "" {
			scaled, err := raster.Thumbnail(thumbnail, raster.ThumbnailMaxDim)
			if err != nil {
				logrus.WithError(err).WithField("sessionId", s.ID()).Warn("Unusable thumbnail dropped from save")
				thumbnail = ""
			} else {
				thumbnail = scaled
			}
		}

		snap, err := s.SceneSnapshot()
		if err != nil {
			logrus.WithError(err).WithField("sessionId", s.ID()).Error("Failed to snapshot scene")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to snapshot scene"})
			return
		}

		art := g.Save(r.Context(), owner, s.ArtworkID(), string(snap), thumbnail, body.Title)
		s.SetArtworkID(art.ID)

		art.Scene = ""
		render.JSON(w, r, art)
	}
}

// HandleExport validates the client-rendered PNG and serves it back as the
// download attachment.
func HandleExport(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}

		var body struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		data, err := raster.ValidateExport(body.Image)
		if err != nil {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		logrus.WithFields(logrus.Fields{
			"sessionId": s.ID(),
			"bytes":     len(data),
		}).Info("Artwork exported")
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="`+raster.ExportFilename+`"`)
		w.Write(data)
	}
}

func HandleCloseSession(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := sessionFromRequest(w, r, reg)
		if !ok {
			return
		}
		reg.Close(s.ID())
		render.NoContent(w, r)
	}
}
