package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/proximity/model"
)

// ErrCorruptPayload is returned when encoded bytes cannot be decoded.
var ErrCorruptPayload = errors.New("codec: corrupt payload")

const neighborSize = 12 // uint64 id + float32 distance

// Binary is a compact little-endian codec for model.Result.
// Format: [count uint32][id uint64, distance float32]*count
type Binary struct{}

// Marshal encodes a model.Result or *model.Result.
func (Binary) Marshal(v any) ([]byte, error) {
	var r model.Result
	switch x := v.(type) {
	case model.Result:
		r = x
	case *model.Result:
		if x == nil {
			return nil, fmt.Errorf("codec binary: nil result")
		}
		r = *x
	default:
		return nil, fmt.Errorf("codec binary: unsupported type %T", v)
	}

	buf := make([]byte, 4+neighborSize*len(r.Neighbors))
	binary.LittleEndian.PutUint32(buf, uint32(len(r.Neighbors)))
	off := 4
	for _, n := range r.Neighbors {
		binary.LittleEndian.PutUint64(buf[off:], n.ID)
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(n.Distance))
		off += neighborSize
	}
	return buf, nil
}

// Unmarshal decodes into a *model.Result.
func (Binary) Unmarshal(data []byte, v any) error {
	r, ok := v.(*model.Result)
	if !ok || r == nil {
		return fmt.Errorf("codec binary: unsupported target %T", v)
	}
	if len(data) < 4 {
		return ErrCorruptPayload
	}

	count := int(binary.LittleEndian.Uint32(data))
	if len(data) != 4+count*neighborSize {
		return ErrCorruptPayload
	}

	r.Neighbors = make([]model.Neighbor, count)
	off := 4
	for i := range r.Neighbors {
		r.Neighbors[i] = model.Neighbor{
			ID:       binary.LittleEndian.Uint64(data[off:]),
			Distance: math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:])),
		}
		off += neighborSize
	}
	return nil
}

// Name returns the unique name of the codec ("binary").
func (Binary) Name() string { return "binary" }
