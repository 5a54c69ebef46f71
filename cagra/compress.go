package cagra

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block codec used for the index payload.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, decode-friendly).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

// String returns the codec name as used in configs and logs.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression parses a codec name. Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, errors.New("cagra: unknown compression codec: " + s)
	}
}

// Payload block layout: [RawSize uint32][CodedSize uint32][data...].
// CodedSize == 0 means the data is stored raw (codec declined or none).
const blockHeaderSize = 8

var (
	zstdEncPool sync.Pool
	zstdDecPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// encodeBlock frames data as a payload block, compressing it with c when that
// actually shrinks it. Incompressible data falls back to raw storage.
func encodeBlock(data []byte, c Compression) ([]byte, error) {
	var coded []byte

	switch c {
	case CompressionNone:
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			coded = dst[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		coded = enc.EncodeAll(data, nil)
		zstdEncPool.Put(enc)
	default:
		return nil, errors.New("cagra: unknown compression codec")
	}

	if len(coded) == 0 || len(coded) >= len(data) {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(coded))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(coded)))
	copy(out[blockHeaderSize:], coded)
	return out, nil
}

// decodeBlock reverses encodeBlock.
func decodeBlock(block []byte, c Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, ErrTruncated
	}

	rawSize := binary.LittleEndian.Uint32(block[0:])
	codedSize := binary.LittleEndian.Uint32(block[4:])

	if codedSize == 0 {
		if uint32(len(block)-blockHeaderSize) < rawSize {
			return nil, ErrTruncated
		}
		return block[blockHeaderSize : blockHeaderSize+rawSize], nil
	}

	if uint32(len(block)-blockHeaderSize) < codedSize {
		return nil, ErrTruncated
	}
	coded := block[blockHeaderSize : blockHeaderSize+codedSize]
	out := make([]byte, rawSize)

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(coded, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawSize {
			return nil, errors.New("cagra: decompressed size mismatch")
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(coded, out[:0])
		zstdDecPool.Put(dec)
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != rawSize {
			return nil, errors.New("cagra: decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, errors.New("cagra: unknown compression codec")
	}
}
