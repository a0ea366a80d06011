package cache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/engine"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Payload layout: one codec byte, the uncompressed length as a little-endian
// uint32, then the msgpack body (LZ4 block-compressed unless codecRaw).
const (
	codecRaw byte = iota
	codecLZ4

	headerSize = 5
)

var errCorrupt = errors.New("corrupt cache payload")

func encodeResult(r *engine.Result) ([]byte, error) {
	body, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding msgpack: %w", err)
	}
	out := make([]byte, headerSize+lz4.CompressBlockBound(len(body)))
	binary.LittleEndian.PutUint32(out[1:headerSize], uint32(len(body)))

	var ht [1 << 16]int
	n, err := lz4.CompressBlock(body, out[headerSize:], ht[:])
	if err != nil {
		return nil, fmt.Errorf("compressing result: %w", err)
	}
	if n == 0 || n >= len(body) {
		out = append(out[:headerSize], body...)
		out[0] = codecRaw
		return out, nil
	}
	out[0] = codecLZ4
	return out[:headerSize+n], nil
}

func decodeResult(data []byte) (*engine.Result, error) {
	if len(data) < headerSize {
		return nil, errCorrupt
	}
	size := int(binary.LittleEndian.Uint32(data[1:headerSize]))
	payload := data[headerSize:]

	var body []byte
	switch data[0] {
	case codecRaw:
		if len(payload) != size {
			return nil, errCorrupt
		}
		body = payload
	case codecLZ4:
		body = make([]byte, size)
		n, err := lz4.UncompressBlock(payload, body)
		if err != nil {
			return nil, fmt.Errorf("decompressing result: %w", err)
		}
		if n != size {
			return nil, errCorrupt
		}
	default:
		return nil, fmt.Errorf("%w: codec %d", errCorrupt, data[0])
	}

	var r engine.Result
	if err := msgpack.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decoding msgpack: %w", err)
	}
	return &r, nil
}
