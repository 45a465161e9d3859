// Package dataset reads and writes benchmark vectors in the .fvecs format
// and resolves dataset locations to blob stores.
//
// An .fvecs file is a sequence of records, each a little-endian int32
// dimension followed by that many float32 components.
package dataset

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/proximity/blobstore"
	"github.com/hupe1980/proximity/blobstore/minio"
	"github.com/hupe1980/proximity/blobstore/s3"
	"github.com/hupe1980/proximity/model"
)

// ErrCorrupt is returned for malformed .fvecs input.
var ErrCorrupt = errors.New("dataset: corrupt fvecs data")

// maxDimension bounds the per-record dimension header.
const maxDimension = 1 << 16

// ReadFvecs reads up to limit vectors (all if limit <= 0).
func ReadFvecs(r io.Reader, limit int) ([]model.Vector, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	var (
		out []model.Vector
		hdr [4]byte
		dim int
		buf []float32
		raw []byte
	)

	for limit <= 0 || len(out) < limit {
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		d := int(int32(binary.LittleEndian.Uint32(hdr[:])))
		if d <= 0 || d > maxDimension {
			return nil, fmt.Errorf("%w: dimension %d", ErrCorrupt, d)
		}
		if dim == 0 {
			dim = d
			buf = make([]float32, d)
			raw = make([]byte, 4*d)
		} else if d != dim {
			return nil, fmt.Errorf("%w: record %d has dimension %d, expected %d", ErrCorrupt, len(out), d, dim)
		}

		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, fmt.Errorf("%w: truncated record %d", ErrCorrupt, len(out))
		}
		for i := range buf {
			buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		out = append(out, model.NewVector(buf))
	}

	return out, nil
}

// WriteFvecs writes vectors in .fvecs format.
func WriteFvecs(w io.Writer, vs []model.Vector) error {
	bw := bufio.NewWriter(w)
	for _, v := range vs {
		var rec []byte
		rec = binary.LittleEndian.AppendUint32(rec, uint32(v.Dim()))
		for _, x := range v.View() {
			rec = binary.LittleEndian.AppendUint32(rec, math.Float32bits(x))
		}
		if _, err := bw.Write(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Location is a parsed dataset URI.
type Location struct {
	// Scheme is "file", "s3" or "minio".
	Scheme string
	// Host is the MinIO endpoint (minio only).
	Host string
	// Bucket is the bucket name (s3, minio).
	Bucket string
	// Name is the blob name within the bucket, or the file path.
	Name string
}

// ParseLocation parses
//
//	/path/to/base.fvecs
//	file:///path/to/base.fvecs
//	s3://bucket/key/base.fvecs
//	minio://endpoint:9000/bucket/key/base.fvecs
func ParseLocation(uri string) (Location, error) {
	if !strings.Contains(uri, "://") {
		return Location{Scheme: "file", Name: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, err
	}

	key := strings.TrimPrefix(u.Path, "/")
	switch u.Scheme {
	case "file":
		return Location{Scheme: "file", Name: u.Path}, nil
	case "s3":
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("dataset: s3 uri needs bucket and key: %q", uri)
		}
		return Location{Scheme: "s3", Bucket: u.Host, Name: key}, nil
	case "minio":
		bucket, name, ok := strings.Cut(key, "/")
		if u.Host == "" || !ok || name == "" {
			return Location{}, fmt.Errorf("dataset: minio uri needs endpoint, bucket and key: %q", uri)
		}
		return Location{Scheme: "minio", Host: u.Host, Bucket: bucket, Name: name}, nil
	default:
		return Location{}, fmt.Errorf("dataset: unsupported scheme %q", u.Scheme)
	}
}

// Open resolves loc to a blob store and the blob name within it.
// MinIO credentials are read from MINIO_ACCESS_KEY and MINIO_SECRET_KEY;
// S3 uses the default AWS credential chain.
func Open(ctx context.Context, loc Location) (blobstore.BlobStore, string, error) {
	switch loc.Scheme {
	case "file", "":
		return blobstore.NewLocalStore(filepath.Dir(loc.Name)), filepath.Base(loc.Name), nil
	case "s3":
		st, err := s3.New(ctx, loc.Bucket, "")
		if err != nil {
			return nil, "", err
		}
		return st, loc.Name, nil
	case "minio":
		st, err := minio.New(minio.Config{
			Endpoint:  loc.Host,
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Secure:    os.Getenv("MINIO_SECURE") == "true",
		}, loc.Bucket, "")
		if err != nil {
			return nil, "", err
		}
		return st, loc.Name, nil
	default:
		return nil, "", fmt.Errorf("dataset: unsupported scheme %q", loc.Scheme)
	}
}

// Load reads up to limit vectors from name in store.
func Load(ctx context.Context, store blobstore.BlobStore, name string, limit int) ([]model.Vector, error) {
	r, err := store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	vs, err := ReadFvecs(r, limit)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path.Base(name), err)
	}
	return vs, nil
}

// LoadURI parses uri, opens its store and loads up to limit vectors.
func LoadURI(ctx context.Context, uri string, limit int) ([]model.Vector, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	store, name, err := Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	return Load(ctx, store, name, limit)
}
