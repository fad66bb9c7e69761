package core

import "context"

type (
	// Artwork is one saved painting in the user's gallery. The JSON field
	// names are the persisted contract: the whole gallery is stored as a
	// single JSON array of these records under one storage key, so renaming
	// a field silently orphans every previously saved gallery.
	Artwork struct {
		ID        string `json:"identifier"`
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnailDataURI,omitempty"`
		Scene     string `json:"sceneBlob,omitempty"` // Serialized scene snapshot, not included in list views.
		SavedAt   int64  `json:"savedAt"`             // Epoch milliseconds, set once at creation.
		UpdatedAt int64  `json:"updatedAt"`           // Epoch milliseconds, bumped on every overwrite/rename.
	}

	// BlobStore is the persistent key-value capability the gallery writes
	// through. Implementations live under stores/ and are selected by
	// deployment configuration; callers must treat failures as non-fatal
	// and keep operating on in-memory state.
	BlobStore interface {
		// Get returns the blob stored under key, or ErrKeyNotFound.
		Get(ctx context.Context, key string) ([]byte, error)

		// Set stores the blob under key, overwriting any previous value.
		Set(ctx context.Context, key string, data []byte) error
	}
)
