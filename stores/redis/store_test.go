package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"paintbox/core"
)

func TestSetGet_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewStore(mr.Addr(), "", 0)
	ctx := context.Background()

	want := []byte(`[{"identifier":"01ART"}]`)
	require.NoError(t, store.Set(ctx, "gallery:user-1", want))

	got, err := store.Get(ctx, "gallery:user-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestGet_MissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewStore(mr.Addr(), "", 0)

	_, err := store.Get(context.Background(), "gallery:nobody")
	require.ErrorIs(t, err, core.ErrKeyNotFound)
}

func TestKeys_CarryAppPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewStore(mr.Addr(), "", 0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "gallery:user-1", []byte("x")))
	require.True(t, mr.Exists("paintbox:gallery:user-1"),
		"blobs must live under the app prefix")
}

func TestSet_Overwrite(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewStore(mr.Addr(), "", 0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("first")))
	require.NoError(t, store.Set(ctx, "k", []byte("second")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}
