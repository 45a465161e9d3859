package dataset

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/proximity/blobstore"
	"github.com/hupe1980/proximity/model"
	"github.com/hupe1980/proximity/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFvecsRoundTrip(t *testing.T) {
	vs := testutil.NewRNG(1).UniformVectors(20, 7)

	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, vs))
	assert.Equal(t, 20*(4+4*7), buf.Len())

	got, err := ReadFvecs(bytes.NewReader(buf.Bytes()), 0)
	require.NoError(t, err)
	assert.Equal(t, vs, got)

	head, err := ReadFvecs(bytes.NewReader(buf.Bytes()), 5)
	require.NoError(t, err)
	assert.Equal(t, vs[:5], head)
}

func TestReadFvecsCorrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, []model.Vector{
		model.NewVector([]float32{1, 2}),
		model.NewVector([]float32{1, 2, 3}),
	}))

	_, err := ReadFvecs(bytes.NewReader(buf.Bytes()), 0)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = ReadFvecs(bytes.NewReader(buf.Bytes()[:10]), 0)
	assert.ErrorIs(t, err, ErrCorrupt)

	bad := binary.LittleEndian.AppendUint32(nil, 0)
	_, err = ReadFvecs(bytes.NewReader(bad), 0)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		uri  string
		want Location
		err  bool
	}{
		{uri: "data/base.fvecs", want: Location{Scheme: "file", Name: "data/base.fvecs"}},
		{uri: "file:///tmp/base.fvecs", want: Location{Scheme: "file", Name: "/tmp/base.fvecs"}},
		{uri: "s3://bucket/sift/base.fvecs", want: Location{Scheme: "s3", Bucket: "bucket", Name: "sift/base.fvecs"}},
		{uri: "minio://localhost:9000/bucket/base.fvecs", want: Location{Scheme: "minio", Host: "localhost:9000", Bucket: "bucket", Name: "base.fvecs"}},
		{uri: "s3://bucket", err: true},
		{uri: "minio://localhost:9000/bucket", err: true},
		{uri: "gs://bucket/x", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseLocation(tt.uri)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	vs := testutil.NewRNG(2).UnitVectors(10, 4)

	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, vs))

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "q.fvecs", buf.Bytes()))

	got, err := Load(ctx, store, "q.fvecs", 0)
	require.NoError(t, err)
	assert.Equal(t, vs, got)

	_, err = Load(ctx, store, "missing.fvecs", 0)
	assert.True(t, errors.Is(err, blobstore.ErrNotFound))
}

func TestLoadURIFile(t *testing.T) {
	vs := testutil.NewRNG(3).UniformVectors(3, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, vs))

	path := filepath.Join(t.TempDir(), "base.fvecs")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, err := LoadURI(context.Background(), path, 0)
	require.NoError(t, err)
	assert.Equal(t, vs, got)
}
