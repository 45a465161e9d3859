package codec

import (
	"fmt"

	"github.com/hupe1980/proximity/model"
)

// Payload encodes cached results and decodes fresh copies on every read.
type Payload struct {
	codec       Codec
	compression Compression
}

// NewPayload returns a Payload using c (Default when nil) and compression.
func NewPayload(c Codec, compression Compression) *Payload {
	if c == nil {
		c = Default
	}
	return &Payload{codec: c, compression: compression}
}

// Name describes the codec and compression, e.g. "binary+lz4".
func (p *Payload) Name() string {
	if p.compression == CompressionNone {
		return p.codec.Name()
	}
	return p.codec.Name() + "+" + p.compression.String()
}

// Encode serializes r into an owned byte slice.
func (p *Payload) Encode(r model.Result) ([]byte, error) {
	raw, err := p.codec.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode payload (%s): %w", p.Name(), err)
	}
	return compress(raw, p.compression)
}

// Decode returns a new Result that shares no memory with data.
func (p *Payload) Decode(data []byte) (model.Result, error) {
	raw, err := decompress(data, p.compression)
	if err != nil {
		return model.Result{}, fmt.Errorf("decode payload (%s): %w", p.Name(), err)
	}

	var r model.Result
	if err := p.codec.Unmarshal(raw, &r); err != nil {
		return model.Result{}, fmt.Errorf("decode payload (%s): %w", p.Name(), err)
	}
	return r, nil
}
