package transport

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestFrameChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: 0x0000, // 2's complement of 0 wraps to 0
		},
		{
			name:     "single byte",
			data:     []byte{0x13},
			expected: 0xFFED,
		},
		{
			name:     "type with length",
			data:     []byte{0x11, 0x04, 0x00},
			expected: 0xFFEB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := frameChecksum(tt.data)
			if result != tt.expected {
				t.Errorf("frameChecksum() = 0x%04X, want 0x%04X", result, tt.expected)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame(FrameReset, nil)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	expected := []byte{StartOfFrame, FrameReset, 0x00, 0x00, 0xED, 0xFF, EndOfFrame}
	if !bytes.Equal(frame, expected) {
		t.Errorf("EncodeFrame() = %X, want %X", frame, expected)
	}

	if _, err := EncodeFrame(FrameCommand, make([]byte, MaxFrameData+1)); err == nil {
		t.Error("EncodeFrame() expected error for oversize data")
	}
}

func TestDecodeFrame(t *testing.T) {
	valid := func(code byte, data []byte) []byte {
		f, _ := EncodeFrame(code, data)
		return f
	}

	tests := []struct {
		name     string
		frame    []byte
		wantCode byte
		wantData int
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "valid frame with no data",
			frame:    valid(BridgeOK, nil),
			wantCode: BridgeOK,
		},
		{
			name:     "valid frame with data",
			frame:    valid(BridgeOK, []byte{0x01, 0x02, 0x03}),
			wantCode: BridgeOK,
			wantData: 3,
		},
		{
			name:     "error status",
			frame:    valid(BridgeChipTimeout, nil),
			wantCode: BridgeChipTimeout,
		},
		{
			name:    "frame too short",
			frame:   []byte{StartOfFrame, 0x00, 0x00},
			wantErr: true,
			errMsg:  "too short",
		},
		{
			name:    "bad start",
			frame:   []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, EndOfFrame},
			wantErr: true,
			errMsg:  "start of frame",
		},
		{
			name:    "bad end",
			frame:   []byte{StartOfFrame, 0x00, 0x00, 0x00, 0x00, 0x00, 0x18},
			wantErr: true,
			errMsg:  "end of frame",
		},
		{
			name:    "length mismatch",
			frame:   []byte{StartOfFrame, 0x00, 0x02, 0x00, 0xFE, 0xFF, EndOfFrame},
			wantErr: true,
			errMsg:  "length mismatch",
		},
		{
			name:    "checksum mismatch",
			frame:   []byte{StartOfFrame, 0x00, 0x00, 0x00, 0x34, 0x12, EndOfFrame},
			wantErr: true,
			errMsg:  "checksum mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data, err := DecodeFrame(tt.frame)

			if tt.wantErr {
				if err == nil {
					t.Fatal("DecodeFrame() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("DecodeFrame() error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("DecodeFrame() unexpected error = %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("code = 0x%02X, want 0x%02X", code, tt.wantCode)
			}
			if len(data) != tt.wantData {
				t.Errorf("data length = %d, want %d", len(data), tt.wantData)
			}
		})
	}
}

func TestReadFrameSkipsNoise(t *testing.T) {
	frame, _ := EncodeFrame(BridgeOK, []byte{0xAA, 0xBB})
	stream := append([]byte{0x00, 0x55, 0x17}, frame...)
	stream = append(stream, frame...)

	r := bufio.NewReader(bytes.NewReader(stream))
	for i := 0; i < 2; i++ {
		got, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("ReadFrame() #%d error = %v", i, err)
		}
		if !bytes.Equal(got, frame) {
			t.Errorf("ReadFrame() #%d = %X, want %X", i, got, frame)
		}
	}
	if _, err := ReadFrame(r); err == nil {
		t.Error("ReadFrame() at end of stream expected error")
	}
}
