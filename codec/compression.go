package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the compression algorithm applied to encoded payloads.
type Compression uint8

const (
	// CompressionNone stores encoded bytes as-is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio, more CPU per hit).
	CompressionZSTD Compression = 2
)

// String returns a string representation of the Compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as used in configuration files.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unsupported compression: %q", s)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means the data is stored uncompressed.
const blockHeaderSize = 8

// compress wraps data in a block, falling back to raw storage when
// compression saves less than 10%.
func compress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	var packed []byte

	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

// decompress reverses compress. The returned slice never aliases block.
func decompress(block []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return append([]byte(nil), block...), nil
	}
	if len(block) < blockHeaderSize {
		return nil, errors.New("block too small for header")
	}

	rawSize := binary.LittleEndian.Uint32(block[0:])
	packedSize := binary.LittleEndian.Uint32(block[4:])

	if packedSize == 0 {
		if uint32(len(block)) < blockHeaderSize+rawSize {
			return nil, errors.New("block data too small")
		}
		return append([]byte(nil), block[blockHeaderSize:blockHeaderSize+rawSize]...), nil
	}

	if uint32(len(block)) < blockHeaderSize+packedSize {
		return nil, errors.New("compressed block data too small")
	}
	packed := block[blockHeaderSize : blockHeaderSize+packedSize]
	out := make([]byte, rawSize)

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(packed, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(packed, out[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}
