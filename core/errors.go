package core

import "errors"

// Domain sentinels. Handlers translate these to HTTP status codes with
// errors.Is; everything else surfaces as a generic 500.
var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrArtworkNotFound = errors.New("artwork not found")
	ErrSessionNotFound = errors.New("session not found")

	// ErrLoadPending rejects undo/redo while a snapshot load is still
	// waiting for the renderer's completion ack.
	ErrLoadPending = errors.New("snapshot load pending")

	// ErrNotEmbedded and ErrHostRejected are distinct on purpose: the
	// client shows a different blocking message for "opened outside the
	// host platform" than for "the host refused the launch".
	ErrNotEmbedded  = errors.New("not embedded in host platform")
	ErrHostRejected = errors.New("host launch rejected")
)
