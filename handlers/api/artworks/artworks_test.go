package artworks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"paintbox/core"
	"paintbox/gallery"
	"paintbox/handlers/auth"
	"paintbox/middleware"
	"paintbox/stores/memory"
)

func authedRequest(method, target, body, subject string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))

	claims := &auth.AppClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
	ctx := context.WithValue(req.Context(), middleware.ClaimsContextKey, claims)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func seedGallery(t *testing.T, owner string, n int) (*gallery.Gallery, []*core.Artwork) {
	t.Helper()
	g := gallery.New(memory.NewStore())
	saved := make([]*core.Artwork, 0, n)
	for i := 0; i < n; i++ {
		saved = append(saved, g.Save(context.Background(), owner, "", `{"objects":[]}`, "data:image/png;base64,xx", ""))
	}
	return g, saved
}

func TestHandleListArtworks(t *testing.T) {
	g, saved := seedGallery(t, "u-1", 2)

	rr := httptest.NewRecorder()
	HandleListArtworks(g)(rr, authedRequest(http.MethodGet, "/api/v2/artworks", "", "u-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var got []core.Artwork
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != saved[1].ID {
		t.Errorf("first entry = %s, want most recent %s", got[0].ID, saved[1].ID)
	}
	if got[0].Scene != "" {
		t.Error("list must not include scene blobs")
	}

	rr = httptest.NewRecorder()
	HandleListArtworks(g)(rr, authedRequest(http.MethodGet, "/api/v2/artworks", "", "someone-else", nil))
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("other owner sees %s, want []", body)
	}
}

func TestHandleListArtworksWithoutClaims(t *testing.T) {
	g, _ := seedGallery(t, "u-1", 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/artworks", nil)
	rr := httptest.NewRecorder()
	HandleListArtworks(g)(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestHandleGetArtwork(t *testing.T) {
	g, saved := seedGallery(t, "u-1", 1)

	rr := httptest.NewRecorder()
	HandleGetArtwork(g)(rr, authedRequest(http.MethodGet, "/api/v2/artworks/"+saved[0].ID, "", "u-1", map[string]string{"id": saved[0].ID}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var got core.Artwork
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Scene == "" {
		t.Error("get must include the scene blob")
	}

	rr = httptest.NewRecorder()
	HandleGetArtwork(g)(rr, authedRequest(http.MethodGet, "/api/v2/artworks/nope", "", "u-1", map[string]string{"id": "nope"}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	// Another owner must not be able to read it.
	rr = httptest.NewRecorder()
	HandleGetArtwork(g)(rr, authedRequest(http.MethodGet, "/api/v2/artworks/"+saved[0].ID, "", "u-2", map[string]string{"id": saved[0].ID}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-owner status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleRenameArtwork(t *testing.T) {
	g, saved := seedGallery(t, "u-1", 1)

	rr := httptest.NewRecorder()
	HandleRenameArtwork(g)(rr, authedRequest(http.MethodPut, "/api/v2/artworks/"+saved[0].ID+"/title",
		`{"title":"Sunset"}`, "u-1", map[string]string{"id": saved[0].ID}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var got core.Artwork
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Sunset" {
		t.Errorf("title = %q, want Sunset", got.Title)
	}

	rr = httptest.NewRecorder()
	HandleRenameArtwork(g)(rr, authedRequest(http.MethodPut, "/api/v2/artworks/"+saved[0].ID+"/title",
		`{"title":"   "}`, "u-1", map[string]string{"id": saved[0].ID}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("blank title status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = httptest.NewRecorder()
	HandleRenameArtwork(g)(rr, authedRequest(http.MethodPut, "/api/v2/artworks/nope/title",
		`{"title":"x"}`, "u-1", map[string]string{"id": "nope"}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleDeleteArtworkTwoPhase(t *testing.T) {
	g, saved := seedGallery(t, "u-1", 1)
	confirms := NewConfirmTracker()
	handler := HandleDeleteArtwork(g, confirms)
	id := saved[0].ID

	del := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler(rr, authedRequest(http.MethodDelete, "/api/v2/artworks/"+id, "", "u-1", map[string]string{"id": id}))
		return rr
	}

	rr := del()
	if rr.Code != http.StatusAccepted {
		t.Fatalf("first call status = %d, want %d", rr.Code, http.StatusAccepted)
	}
	var armed struct {
		Status      string `json:"status"`
		ExpiresInMs int64  `json:"expiresInMs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &armed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if armed.Status != "confirm_required" || armed.ExpiresInMs <= 0 {
		t.Fatalf("unexpected arm response %+v", armed)
	}
	if len(g.List(context.Background(), "u-1")) != 1 {
		t.Fatal("artwork deleted before confirmation")
	}

	rr = del()
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, want %d", rr.Code, http.StatusOK)
	}
	if len(g.List(context.Background(), "u-1")) != 0 {
		t.Fatal("artwork not deleted after confirmation")
	}

	rr = del()
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted id status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleDeleteArtworkConfirmExpires(t *testing.T) {
	g, saved := seedGallery(t, "u-1", 1)
	confirms := NewConfirmTracker()
	confirms.window = 10 * time.Millisecond
	handler := HandleDeleteArtwork(g, confirms)
	id := saved[0].ID

	rr := httptest.NewRecorder()
	handler(rr, authedRequest(http.MethodDelete, "/api/v2/artworks/"+id, "", "u-1", map[string]string{"id": id}))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("first call status = %d, want %d", rr.Code, http.StatusAccepted)
	}

	time.Sleep(30 * time.Millisecond)

	// Window elapsed, so this arms again instead of deleting.
	rr = httptest.NewRecorder()
	handler(rr, authedRequest(http.MethodDelete, "/api/v2/artworks/"+id, "", "u-1", map[string]string{"id": id}))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("late call status = %d, want %d", rr.Code, http.StatusAccepted)
	}
	if len(g.List(context.Background(), "u-1")) != 1 {
		t.Fatal("expired confirmation still deleted the artwork")
	}
}

func TestHandleDeleteArtworkSupersede(t *testing.T) {
	g, saved := seedGallery(t, "u-1", 2)
	confirms := NewConfirmTracker()
	handler := HandleDeleteArtwork(g, confirms)

	arm := func(id string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler(rr, authedRequest(http.MethodDelete, "/api/v2/artworks/"+id, "", "u-1", map[string]string{"id": id}))
		return rr
	}

	arm(saved[0].ID)
	// Arming a different artwork drops the first pending delete.
	arm(saved[1].ID)

	rr := arm(saved[0].ID)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("superseded artwork should re-arm, got status %d", rr.Code)
	}
	if len(g.List(context.Background(), "u-1")) != 2 {
		t.Fatal("supersede path deleted something")
	}
}
