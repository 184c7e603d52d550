package protocol

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	header := PacketHeader{
		Magic:     Magic,
		Version:   Version,
		Width:     1920,
		Height:    1080,
		Format:    FormatRGBA32,
		Timestamp: 0x0123456789ABCDEF,
		Size:      1920 * 1080 * 4,
		Reserved:  0xDEADBEEF,
	}

	buf := header.Encode()
	if len(buf) != HeaderSize {
		t.Fatalf("Expected %d encoded bytes, got %d", HeaderSize, len(buf))
	}

	parsed, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}

	if parsed != header {
		t.Errorf("Round trip mismatch: encoded %+v, decoded %+v", header, parsed)
	}
}

func TestHeaderRoundTripArbitraryFields(t *testing.T) {
	// Encode never validates, so arbitrary dimensions and sizes must
	// survive the round trip for every valid format tag.
	for _, format := range []FrameFormat{FormatRGBA32, FormatRGB24, FormatH264, FormatH265} {
		header := PacketHeader{
			Magic:     Magic,
			Version:   Version,
			Width:     0xFFFFFFFF,
			Height:    0,
			Format:    format,
			Timestamp: 0xFFFFFFFFFFFFFFFF,
			Size:      0x80000001,
			Reserved:  0x12345678,
		}

		parsed, err := DecodeHeader(header.Encode())
		if err != nil {
			t.Fatalf("DecodeHeader failed for format %s: %v", format, err)
		}
		if parsed != header {
			t.Errorf("Round trip mismatch for format %s", format)
		}
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderSize-1))
	if !errors.Is(err, ErrHeaderTooShort) {
		t.Errorf("Expected ErrHeaderTooShort, got %v", err)
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	header := NewHeader(1920, 1080, FormatRGBA32, 64)
	buf := header.Encode()
	binary.BigEndian.PutUint32(buf[0:4], 0x4B414B41)

	_, err := DecodeHeader(buf)
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("Expected ErrBadMagic, got %v", err)
	}
}

func TestDecodeHeaderBadVersion(t *testing.T) {
	header := NewHeader(1920, 1080, FormatRGBA32, 64)
	buf := header.Encode()
	binary.BigEndian.PutUint32(buf[4:8], 2)

	_, err := DecodeHeader(buf)
	if !errors.Is(err, ErrBadVersion) {
		t.Errorf("Expected ErrBadVersion, got %v", err)
	}
}

func TestDecodeHeaderUnknownFormat(t *testing.T) {
	header := NewHeader(1920, 1080, FormatRGBA32, 64)
	buf := header.Encode()
	binary.BigEndian.PutUint32(buf[16:20], 42)

	_, err := DecodeHeader(buf)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestDecodeHeaderChecksMagicBeforeFormat(t *testing.T) {
	// A wrong magic must be reported regardless of the other fields.
	header := NewHeader(0, 99999, FrameFormat(42), 64)
	header.Magic = 0
	header.Version = 7

	_, err := DecodeHeader(header.Encode())
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("Expected ErrBadMagic, got %v", err)
	}
}

func TestValidateDimensionBounds(t *testing.T) {
	tests := []struct {
		name    string
		width   uint32
		height  uint32
		wantErr error
	}{
		{"zero width", 0, 1080, ErrDimensions},
		{"zero height", 1920, 0, ErrDimensions},
		{"width over 8k", MaxWidth + 1, 1080, ErrDimensions},
		{"height over 8k", 1920, MaxHeight + 1, ErrDimensions},
		{"max bounds ok", MaxWidth, MaxHeight, nil},
		{"typical ok", 1920, 1080, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := NewHeader(tt.width, tt.height, FormatRGBA32, 16)
			err := header.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateStandaloneHeader(t *testing.T) {
	// Validate must also catch a programmatically built header that
	// never went through DecodeHeader.
	header := PacketHeader{Magic: 0x12345678, Version: Version, Width: 640, Height: 480}
	if err := header.Validate(); !errors.Is(err, ErrBadMagic) {
		t.Errorf("Expected ErrBadMagic, got %v", err)
	}

	header = PacketHeader{Magic: Magic, Version: 9, Width: 640, Height: 480}
	if err := header.Validate(); !errors.Is(err, ErrBadVersion) {
		t.Errorf("Expected ErrBadVersion, got %v", err)
	}
}

func TestIsInfoPacket(t *testing.T) {
	info := NewHeader(1920, 1080, FormatRGBA32, 0)
	if !info.IsInfoPacket() {
		t.Error("Expected size=0 header to be an info packet")
	}

	data := NewHeader(1920, 1080, FormatRGBA32, 1)
	if data.IsInfoPacket() {
		t.Error("Expected size=1 header to not be an info packet")
	}
}

func TestParseFrameFormat(t *testing.T) {
	for raw, want := range map[uint32]FrameFormat{
		0: FormatRGBA32,
		1: FormatRGB24,
		2: FormatH264,
		3: FormatH265,
	} {
		got, err := ParseFrameFormat(raw)
		if err != nil {
			t.Fatalf("ParseFrameFormat(%d) failed: %v", raw, err)
		}
		if got != want {
			t.Errorf("ParseFrameFormat(%d) = %v, want %v", raw, got, want)
		}
	}

	if _, err := ParseFrameFormat(4); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat for tag 4, got %v", err)
	}
}
