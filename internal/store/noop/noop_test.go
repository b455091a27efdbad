package noop_test

import (
	"bytes"
	"context"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/cirruslabs/mocha/internal/store/noop"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestGet(t *testing.T) {
	ctx := context.Background()
	key := uuid.NewString()

	noop := noop.New()

	// Retrieval from no-op cache should return ErrNotFound
	_, _, err := noop.Get(ctx, key)
	require.ErrorIs(t, err, store.ErrNotFound)

	// ...even after a Put()
	err = noop.Put(ctx, key, store.Metadata{ContentType: "image/webp"}, bytes.NewReader([]byte("Hello, World!")))
	require.NoError(t, err)

	exists, err := noop.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	_, _, err = noop.Get(ctx, key)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPut(t *testing.T) {
	ctx := context.Background()
	key := uuid.NewString()

	noop := noop.New()

	// Put() to a no-op cache should read everything from the io.Reader that we pass to it
	buf := bytes.NewBufferString("Hello, World!")
	require.NotEmpty(t, buf.String())

	err := noop.Put(ctx, key, store.Metadata{ContentType: "image/webp"}, buf)
	require.NoError(t, err)

	require.Empty(t, buf.String())
}
