package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSGetMissing(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "purchase-history/20240101/tickets.json")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestFSPutGetRoundTrip(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "purchase-history/20240101/tickets.json"
	require.NoError(t, s.Put(ctx, key, []byte(`{"tickets":[]}`), ""))

	data, etag, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"tickets":[]}`, string(data))
	assert.NotEmpty(t, etag)

	// Conditional rewrite with the observed etag succeeds.
	require.NoError(t, s.Put(ctx, key, []byte(`{"tickets":[1]}`), etag))

	data, etag2, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"tickets":[1]}`, string(data))
	assert.NotEqual(t, etag, etag2)
}

func TestFSPutConditionalFailures(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "purchase-history/20240102/tickets.json"
	require.NoError(t, s.Put(ctx, key, []byte("v1"), ""))

	// Create-only put against an existing object.
	assert.ErrorIs(t, s.Put(ctx, key, []byte("v2"), ""), ErrETagMismatch)

	// Stale etag after the object changed underneath the caller.
	_, stale, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, key, []byte("v2"), stale))
	assert.ErrorIs(t, s.Put(ctx, key, []byte("v3"), stale), ErrETagMismatch)

	// Conditional put against a missing object.
	assert.ErrorIs(t, s.Put(ctx, "missing/key", []byte("x"), stale), ErrETagMismatch)
}

func TestFSRejectsEscapingKeys(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "../outside")
	assert.Error(t, err)

	err = s.Put(context.Background(), "/absolute", []byte("x"), "")
	assert.Error(t, err)
}
