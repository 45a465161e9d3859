package blobstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	stores := map[string]BlobStore{
		"local":  NewLocalStore(t.TempDir()),
		"memory": NewMemoryStore(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, s.Put(ctx, "data/a.fvecs", []byte("aaa")))
			require.NoError(t, s.Put(ctx, "data/b.fvecs", []byte("bbb")))
			require.NoError(t, s.Put(ctx, "queries.fvecs", []byte("q")))
			require.NoError(t, s.Put(ctx, "data/a.fvecs", []byte("AAAA")))

			r, err := s.Get(ctx, "data/a.fvecs")
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, []byte("AAAA"), got)

			names, err := s.List(ctx, "data/")
			require.NoError(t, err)
			assert.Equal(t, []string{"data/a.fvecs", "data/b.fvecs"}, names)

			all, err := s.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}
