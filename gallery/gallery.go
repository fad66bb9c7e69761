package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"paintbox/core"
)

// keyPrefix namespaces one storage key per owner. Everything an owner ever
// saved lives in that single blob as a JSON array, most recent first.
const keyPrefix = "gallery:"

// Gallery is the saved-artwork service. It is authoritative in memory and
// writes through to the blob store on every mutation; a store failure is
// logged and the in-memory state keeps going, so a flaky backend degrades
// persistence but never the editing session.
type Gallery struct {
	store core.BlobStore

	mu    sync.Mutex
	cache map[string][]*core.Artwork
}

func New(store core.BlobStore) *Gallery {
	return &Gallery{
		store: store,
		cache: make(map[string][]*core.Artwork),
	}
}

// entriesLocked returns the owner's live list, loading it from the store
// on first touch. A missing, unreadable or corrupt blob yields an empty
// gallery with a warning; save/load must never hard-fail on bad persisted
// state.
func (g *Gallery) entriesLocked(ctx context.Context, owner string) []*core.Artwork {
	if list, ok := g.cache[owner]; ok {
		return list
	}
	var list []*core.Artwork
	data, err := g.store.Get(ctx, keyPrefix+owner)
	switch {
	case errors.Is(err, core.ErrKeyNotFound):
		// First visit, nothing saved yet.
	case err != nil:
		logrus.WithError(err).WithField("owner", owner).Warn("Failed to read gallery blob, starting empty")
	default:
		if err := json.Unmarshal(data, &list); err != nil {
			logrus.WithError(err).WithField("owner", owner).Warn("Corrupt gallery blob discarded, starting empty")
			list = nil
		}
	}
	g.cache[owner] = list
	return list
}

// persistLocked writes the owner's whole list back to the store. Failures
// are logged only; the cache remains authoritative for the process
// lifetime.
func (g *Gallery) persistLocked(ctx context.Context, owner string) {
	data, err := json.Marshal(g.cache[owner])
	if err != nil {
		logrus.WithError(err).WithField("owner", owner).Error("Failed to encode gallery blob")
		return
	}
	if err := g.store.Set(ctx, keyPrefix+owner, data); err != nil {
		logrus.WithError(err).WithField("owner", owner).Error("Failed to persist gallery, keeping in-memory state")
	}
}

// List returns the owner's artworks most recent first, without scene
// blobs.
func (g *Gallery) List(ctx context.Context, owner string) []*core.Artwork {
	g.mu.Lock()
	defer g.mu.Unlock()
	list := g.entriesLocked(ctx, owner)
	out := make([]*core.Artwork, 0, len(list))
	for _, a := range list {
		meta := *a
		meta.Scene = ""
		out = append(out, &meta)
	}
	return out
}

// Get returns one artwork including its scene blob.
func (g *Gallery) Get(ctx context.Context, owner, id string) (*core.Artwork, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.entriesLocked(ctx, owner) {
		if a.ID == id {
			full := *a
			return &full, nil
		}
	}
	return nil, core.ErrArtworkNotFound
}

// Save stores a snapshot. With an id that resolves, the entry is
// overwritten in place: same id, same savedAt, same list position, new
// scene/thumbnail and a bumped updatedAt. With no id, or an id that no
// longer resolves (the entry was deleted meanwhile), a new entry is
// prepended under a fresh ULID. An empty title means "keep the existing
// title" on overwrite and "use the default numbered title" on create.
func (g *Gallery) Save(ctx context.Context, owner, existingID, sceneBlob, thumbnail, title string) *core.Artwork {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	list := g.entriesLocked(ctx, owner)

	if existingID != "" {
		for _, a := range list {
			if a.ID == existingID {
				a.Scene = sceneBlob
				a.Thumbnail = thumbnail
				a.UpdatedAt = now
				if t := strings.TrimSpace(title); t != "" {
					a.Title = t
				}
				g.persistLocked(ctx, owner)
				logrus.WithFields(logrus.Fields{"artworkId": a.ID, "owner": owner}).Info("Artwork overwritten")
				full := *a
				return &full
			}
		}
	}

	art := &core.Artwork{
		ID:        ulid.Make().String(),
		Title:     strings.TrimSpace(title),
		Thumbnail: thumbnail,
		Scene:     sceneBlob,
		SavedAt:   now,
		UpdatedAt: now,
	}
	if art.Title == "" {
		art.Title = fmt.Sprintf("Artwork #%d", len(list)+1)
	}
	g.cache[owner] = append([]*core.Artwork{art}, list...)
	g.persistLocked(ctx, owner)
	logrus.WithFields(logrus.Fields{"artworkId": art.ID, "owner": owner, "title": art.Title}).Info("Artwork saved")
	full := *art
	return &full
}

// Delete removes an artwork and reports whether it existed. Deleting an
// unknown id is a no-op, not an error.
func (g *Gallery) Delete(ctx context.Context, owner, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	list := g.entriesLocked(ctx, owner)
	for i, a := range list {
		if a.ID == id {
			g.cache[owner] = append(list[:i], list[i+1:]...)
			g.persistLocked(ctx, owner)
			logrus.WithFields(logrus.Fields{"artworkId": id, "owner": owner}).Info("Artwork deleted")
			return true
		}
	}
	return false
}

// Rename updates an artwork's title.
func (g *Gallery) Rename(ctx context.Context, owner, id, title string) (*core.Artwork, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.entriesLocked(ctx, owner) {
		if a.ID == id {
			a.Title = title
			a.UpdatedAt = time.Now().UnixMilli()
			g.persistLocked(ctx, owner)
			logrus.WithFields(logrus.Fields{"artworkId": id, "owner": owner}).Info("Artwork renamed")
			full := *a
			return &full, nil
		}
	}
	return nil, core.ErrArtworkNotFound
}
