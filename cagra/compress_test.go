package cagra

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeBlock(t *testing.T) {
	// Highly repetitive payload so every codec actually compresses.
	data := bytes.Repeat([]byte("vecforge-payload-"), 1000)

	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			block, err := encodeBlock(data, comp)
			if err != nil {
				t.Fatal(err)
			}
			if comp != CompressionNone && len(block) >= len(data) {
				t.Errorf("block size %d not smaller than raw %d", len(block), len(data))
			}

			got, err := decodeBlock(block, comp)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Error("decoded payload differs from input")
			}
		})
	}
}

func TestEncodeBlockIncompressibleFallsBackToRaw(t *testing.T) {
	// A short already-unique payload gains nothing from compression; the
	// block must store it raw (CodedSize == 0) and still round-trip.
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	for _, comp := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			block, err := encodeBlock(data, comp)
			if err != nil {
				t.Fatal(err)
			}
			got, err := decodeBlock(block, comp)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Error("decoded payload differs from input")
			}
		})
	}
}

func TestDecodeBlockTruncated(t *testing.T) {
	if _, err := decodeBlock([]byte{1, 2, 3}, CompressionNone); err == nil {
		t.Error("expected error for short block")
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{in: "", want: CompressionNone},
		{in: "none", want: CompressionNone},
		{in: "lz4", want: CompressionLZ4},
		{in: "zstd", want: CompressionZSTD},
		{in: "gzip", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCompression(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCompression(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCompression(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCompressionString(t *testing.T) {
	if CompressionZSTD.String() != "zstd" {
		t.Errorf("String() = %q, want zstd", CompressionZSTD.String())
	}
	if Compression(99).String() != "unknown" {
		t.Errorf("String() = %q, want unknown", Compression(99).String())
	}
}
