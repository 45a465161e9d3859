package codec

import (
	"testing"

	"github.com/hupe1980/proximity/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(n int) model.Result {
	r := model.Result{Neighbors: make([]model.Neighbor, n)}
	for i := range r.Neighbors {
		r.Neighbors[i] = model.Neighbor{ID: uint64(i % 7), Distance: float32(i%5) * 0.25}
	}
	return r
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("binary")
	require.True(t, ok)
	assert.Equal(t, "binary", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("gob")
	assert.False(t, ok)
}

func TestJSONCodecsInterchangeable(t *testing.T) {
	r := sampleResult(9)

	std, err := JSON{}.Marshal(r)
	require.NoError(t, err)
	fast, err := GoJSON{}.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, string(std), string(fast))

	var got model.Result
	require.NoError(t, GoJSON{}.Unmarshal(std, &got))
	assert.Equal(t, r, got)
}

func TestBinary(t *testing.T) {
	t.Run("Unsupported", func(t *testing.T) {
		_, err := Binary{}.Marshal("nope")
		require.Error(t, err)

		var s string
		require.Error(t, Binary{}.Unmarshal([]byte{0, 0, 0, 0}, &s))
	})

	t.Run("Corrupt", func(t *testing.T) {
		var r model.Result
		require.ErrorIs(t, Binary{}.Unmarshal([]byte{1}, &r), ErrCorruptPayload)
		require.ErrorIs(t, Binary{}.Unmarshal([]byte{2, 0, 0, 0, 1, 2}, &r), ErrCorruptPayload)
	})

	t.Run("Empty", func(t *testing.T) {
		b := MustMarshal(Binary{}, model.Result{})
		assert.Len(t, b, 4)

		var r model.Result
		require.NoError(t, Binary{}.Unmarshal(b, &r))
		assert.Equal(t, 0, r.Len())
	})
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name        string
		codec       Codec
		compression Compression
		want        string
	}{
		{"binary", Binary{}, CompressionNone, "binary"},
		{"binary+lz4", Binary{}, CompressionLZ4, "binary+lz4"},
		{"binary+zstd", Binary{}, CompressionZSTD, "binary+zstd"},
		{"json+zstd", JSON{}, CompressionZSTD, "json+zstd"},
		{"go-json+lz4", GoJSON{}, CompressionLZ4, "go-json+lz4"},
		{"default", nil, CompressionNone, "binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPayload(tt.codec, tt.compression)
			assert.Equal(t, tt.want, p.Name())

			in := sampleResult(256)
			data, err := p.Encode(in)
			require.NoError(t, err)

			out, err := p.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, in, out)

			// Mutating a decoded copy must not affect the next read.
			out.Neighbors[0].ID = 999
			again, err := p.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, in.Neighbors[0].ID, again.Neighbors[0].ID)
		})
	}
}

func TestCompressionShrinksRepetitivePayloads(t *testing.T) {
	in := sampleResult(1024)

	raw, err := NewPayload(Binary{}, CompressionNone).Encode(in)
	require.NoError(t, err)

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		packed, err := NewPayload(Binary{}, c).Encode(in)
		require.NoError(t, err)
		assert.Less(t, len(packed), len(raw), c.String())
	}
}

func TestIncompressibleFallsBackToRaw(t *testing.T) {
	data := []byte{1, 2, 3}
	block, err := compress(data, CompressionLZ4)
	require.NoError(t, err)
	assert.Len(t, block, blockHeaderSize+len(data))

	out, err := decompress(block, CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = decompress([]byte{1}, CompressionZSTD)
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for s, want := range map[string]Compression{"": CompressionNone, "LZ4": CompressionLZ4, "zstd": CompressionZSTD} {
		got, err := ParseCompression(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("snappy")
	assert.Error(t, err)
}
