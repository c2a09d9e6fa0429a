// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the codec applied independently to a block's
// dependency and object payloads. Both codecs produce self-describing
// framed output, so the ingestion side needs no out-of-band size.
type Compression string

const (
	// CompressionLZ4 is the default: frame-format LZ4, favoring
	// compression speed over ratio since it runs on producer
	// goroutines.
	CompressionLZ4 Compression = "lz4"

	// CompressionZstd trades CPU for ratio. Worth enabling when
	// uplink bandwidth is the constraint rather than producer CPU.
	CompressionZstd Compression = "zstd"
)

// Valid reports whether c names a known codec.
func (c Compression) Valid() bool {
	return c == CompressionLZ4 || c == CompressionZstd
}

// zstdEncoder and zstdDecoder are shared across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic("sink: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("sink: zstd decoder initialization failed: " + err.Error())
	}
}

// compressPayload compresses data with the given codec. Unlike
// general-purpose chunk stores there is no incompressible fallback:
// the wire format always carries framed compressed payloads, and the
// frame overhead on incompressible data is negligible at block sizes.
func compressPayload(data []byte, codec Compression) ([]byte, error) {
	switch codec {
	case CompressionLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buffer.Bytes(), nil

	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	default:
		return nil, fmt.Errorf("unsupported compression codec: %q", codec)
	}
}

// Frame magic numbers, little-endian on the wire.
var (
	lz4FrameMagic  = []byte{0x04, 0x22, 0x4d, 0x18}
	zstdFrameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectCompression identifies the codec of a compressed payload from
// its frame magic. The ingestion side uses this so agents can switch
// codecs without renegotiation.
func DetectCompression(data []byte) (Compression, bool) {
	if len(data) < 4 {
		return "", false
	}
	if bytes.Equal(data[:4], lz4FrameMagic) {
		return CompressionLZ4, true
	}
	if bytes.Equal(data[:4], zstdFrameMagic) {
		return CompressionZstd, true
	}
	return "", false
}

// DecompressPayload reverses compressPayload. Exported for the
// ingestion side (the mock endpoint and tests decode envelopes).
func DecompressPayload(data []byte, codec Compression) ([]byte, error) {
	switch codec {
	case CompressionLZ4:
		decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return decompressed, nil

	case CompressionZstd:
		decompressed, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return decompressed, nil

	default:
		return nil, fmt.Errorf("unsupported compression codec: %q", codec)
	}
}
