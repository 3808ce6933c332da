package command

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/moffa90/go-morsectl/protocol"
)

func encodePayload(t *testing.T, req Request) ([]byte, error) {
	t.Helper()
	buf := make([]byte, req.MaxPayloadSize())
	w := protocol.NewWriter(buf)
	if err := req.Encode(w); err != nil {
		return nil, err
	}
	return buf[:w.Len()], nil
}

func TestRAWSlotDefAndGroup(t *testing.T) {
	req := &RAW{
		ID:      5,
		Action:  RAWEnable,
		SlotDef: Some(SlotDefinition{DurationUs: 4000, NumSlots: 8}),
		Group:   Some(AIDGroup{Start: 10, End: 20}),
	}

	payload, err := encodePayload(t, req)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	expected := []byte{
		0x05, 0x00, 0x00, 0x00, // flags: ENABLE | UPDATE
		0x05, 0x00, // id
		0x00, 0xA0, 0x0F, 0x00, 0x00, 0x08, 0x00, // slot_def
		0x01, 0x0A, 0x00, 0x14, 0x00, // group
	}
	if !bytes.Equal(payload, expected) {
		t.Errorf("payload = %X, want %X", payload, expected)
	}

	flags := binary.LittleEndian.Uint32(payload[0:4])
	if flags&RAWFlagUpdate == 0 {
		t.Errorf("flags = 0x%X, UPDATE bit not set", flags)
	}
	if got := req.TLVLength(); got != RAWSlotDefSize+RAWGroupSize {
		t.Errorf("TLVLength() = %d, want %d", got, RAWSlotDefSize+RAWGroupSize)
	}
	if len(payload)-rawPrefixSize != req.TLVLength() {
		t.Errorf("chain bytes = %d, TLVLength() = %d", len(payload)-rawPrefixSize, req.TLVLength())
	}
}

func TestRAWTLVLength(t *testing.T) {
	tests := []struct {
		name string
		req  RAW
		want int
	}{
		{
			name: "no options",
			req:  RAW{ID: 1, Action: RAWEnable},
			want: 0,
		},
		{
			name: "start time only",
			req:  RAW{ID: 1, StartTimeUs: Some(uint32(1000))},
			want: RAWStartTimeSize,
		},
		{
			name: "every tag but beacon spread",
			req: RAW{
				ID:          1,
				SlotDef:     Some(SlotDefinition{DurationUs: 500, NumSlots: 1}),
				Group:       Some(AIDGroup{Start: 1, End: 1}),
				StartTimeUs: Some(uint32(0)),
				PRAW:        Some(PeriodicRAW{Periodicity: 2, Validity: 1}),
			},
			want: RAWSlotDefSize + RAWGroupSize + RAWStartTimeSize + RAWPRAWSize,
		},
		{
			name: "beacon spread with group",
			req: RAW{
				ID:           1,
				Group:        Some(AIDGroup{Start: 100, End: 200}),
				BeaconSpread: Some(BeaconSpread{MaxSpread: 4, NominalSTAPerBcn: 16}),
			},
			want: RAWGroupSize + RAWBcnSpreadSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := encodePayload(t, &tt.req)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got := len(payload) - rawPrefixSize; got != tt.want {
				t.Errorf("chain length = %d, want %d", got, tt.want)
			}
			if tt.req.TLVLength() != tt.want {
				t.Errorf("TLVLength() = %d, want %d", tt.req.TLVLength(), tt.want)
			}

			var decoded RAW
			if err := decoded.Decode(protocol.NewReader(payload)); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if decoded.SlotDef.Set != tt.req.SlotDef.Set || decoded.Group.Set != tt.req.Group.Set ||
				decoded.StartTimeUs.Set != tt.req.StartTimeUs.Set || decoded.PRAW.Set != tt.req.PRAW.Set ||
				decoded.BeaconSpread.Set != tt.req.BeaconSpread.Set {
				t.Errorf("decoded tags %+v differ from encoded %+v", decoded, tt.req)
			}
		})
	}
}

func TestRAWValidation(t *testing.T) {
	slots := func(dur uint32, n uint8) Optional[SlotDefinition] {
		return Some(SlotDefinition{DurationUs: dur, NumSlots: n})
	}
	praw := func(period, validity, offset uint8) Optional[PeriodicRAW] {
		return Some(PeriodicRAW{Periodicity: period, Validity: validity, StartOffset: offset})
	}

	tests := []struct {
		name    string
		req     RAW
		wantErr bool
		errMsg  string
	}{
		{name: "one slot", req: RAW{ID: 1, SlotDef: slots(500, 1)}},
		{name: "63 slots", req: RAW{ID: 1, SlotDef: slots(63*500, 63)}},
		{name: "zero slots", req: RAW{ID: 1, SlotDef: slots(500, 0)}, wantErr: true, errMsg: "num_slots"},
		{name: "64 slots", req: RAW{ID: 1, SlotDef: slots(64*500, 64)}, wantErr: true, errMsg: "num_slots"},
		{name: "minimum duration", req: RAW{ID: 1, SlotDef: slots(8*500, 8)}},
		{name: "below minimum duration", req: RAW{ID: 1, SlotDef: slots(8*500-1, 8)}, wantErr: true, errMsg: "duration_us"},
		{name: "maximum duration", req: RAW{ID: 1, SlotDef: slots(2*RAWMaxSlotDurUs, 2)}},
		{name: "above maximum duration", req: RAW{ID: 1, SlotDef: slots(2*RAWMaxSlotDurUs+1, 2)}, wantErr: true, errMsg: "duration_us"},
		{name: "aid bounds", req: RAW{ID: 1, Group: Some(AIDGroup{Start: 1, End: RAWMaxAID})}},
		{name: "aid zero", req: RAW{ID: 1, Group: Some(AIDGroup{Start: 0, End: 5})}, wantErr: true, errMsg: "aid_group"},
		{name: "aid above max", req: RAW{ID: 1, Group: Some(AIDGroup{Start: 1, End: RAWMaxAID + 1})}, wantErr: true, errMsg: "aid_group"},
		{name: "aid start after end", req: RAW{ID: 1, Group: Some(AIDGroup{Start: 20, End: 10})}, wantErr: true, errMsg: "exceeds end"},
		{name: "maximum start time", req: RAW{ID: 1, StartTimeUs: Some(uint32(RAWMaxStartTimeUs))}},
		{name: "start time too late", req: RAW{ID: 1, StartTimeUs: Some(uint32(RAWMaxStartTimeUs + 1))}, wantErr: true, errMsg: "start_time_us"},
		{name: "praw bounds", req: RAW{ID: 1, PRAW: praw(255, 255, 254)}},
		{name: "praw zero period", req: RAW{ID: 1, PRAW: praw(0, 1, 0)}, wantErr: true, errMsg: "periodicity"},
		{name: "praw zero validity", req: RAW{ID: 1, PRAW: praw(4, 0, 0)}, wantErr: true, errMsg: "validity"},
		{name: "praw persistent", req: RAW{ID: 1, PRAW: Some(PeriodicRAW{Periodicity: 4, Persistent: true})}},
		{name: "praw offset equals period", req: RAW{ID: 1, PRAW: praw(4, 1, 4)}, wantErr: true, errMsg: "start_offset"},
		{
			name: "praw with beacon spread",
			req: RAW{
				ID:           1,
				PRAW:         praw(4, 1, 0),
				BeaconSpread: Some(BeaconSpread{MaxSpread: 1, NominalSTAPerBcn: 1}),
			},
			wantErr: true,
			errMsg:  "not supported together",
		},
		{name: "global with options", req: RAW{ID: 0, Group: Some(AIDGroup{Start: 1, End: 2})}, wantErr: true, errMsg: "global"},
		{name: "global enable", req: RAW{ID: 0, Action: RAWEnable}},
		{name: "unknown action", req: RAW{ID: 1, Action: RAWAction(7)}, wantErr: true, errMsg: "action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := encodePayload(t, &tt.req)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Encode() expected error, got payload %X", payload)
				}
				var vErr *protocol.ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("Encode() error type = %T, want *protocol.ValidationError", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Encode() error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Errorf("Encode() unexpected error = %v", err)
			}
		})
	}
}

func TestRAWDelete(t *testing.T) {
	req := &RAW{
		ID:        3,
		Action:    RAWDelete,
		Group:     Some(AIDGroup{Start: 1, End: 2}),
		CrossSlot: true,
	}

	payload, err := encodePayload(t, req)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	expected := []byte{0x02, 0x00, 0x00, 0x00, 0x03, 0x00}
	if !bytes.Equal(payload, expected) {
		t.Errorf("payload = %X, want %X", payload, expected)
	}
	if w := req.Warnings(); len(w) != 1 {
		t.Errorf("Warnings() = %v, want one warning", w)
	}
}

func TestRAWCrossSlotWithoutSlotDef(t *testing.T) {
	req := &RAW{ID: 2, Action: RAWEnable, CrossSlot: true}

	payload, err := encodePayload(t, req)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(payload) != rawPrefixSize {
		t.Errorf("payload length = %d, want %d", len(payload), rawPrefixSize)
	}

	warnings := req.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "cross slot") {
		t.Errorf("Warnings() = %v, want cross slot warning", warnings)
	}

	req.SlotDef = Some(SlotDefinition{DurationUs: 1000, NumSlots: 2})
	if w := req.Warnings(); len(w) != 0 {
		t.Errorf("Warnings() with slot definition = %v, want none", w)
	}
	payload, err = encodePayload(t, req)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if payload[rawPrefixSize+6] != 1 {
		t.Errorf("cross slot byte = %d, want 1", payload[rawPrefixSize+6])
	}
}

func TestRAWRoundTrip(t *testing.T) {
	req := RAW{
		ID:          9,
		Action:      RAWEnable,
		SlotDef:     Some(SlotDefinition{DurationUs: 12000, NumSlots: 4}),
		CrossSlot:   true,
		Group:       Some(AIDGroup{Start: 1, End: 2007}),
		StartTimeUs: Some(uint32(2048)),
		PRAW:        Some(PeriodicRAW{Periodicity: 8, Persistent: true, StartOffset: 3}),
	}

	payload, err := encodePayload(t, &req)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var got RAW
	if err := got.Decode(protocol.NewReader(payload)); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != req {
		t.Errorf("Decode() = %+v, want %+v", got, req)
	}
}

func TestRAWDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		errMsg  string
	}{
		{
			name:    "short prefix",
			payload: []byte{0x01, 0x00, 0x00},
			errMsg:  "truncated",
		},
		{
			name:    "unknown tag",
			payload: []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x09},
			errMsg:  "unknown TLV tag 9",
		},
		{
			name:    "repeated tag",
			payload: []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02, 0, 0, 0, 0, 0x02, 0, 0, 0, 0},
			errMsg:  "repeated",
		},
		{
			name:    "truncated value",
			payload: []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x01},
			errMsg:  "truncated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RAW
			err := got.Decode(protocol.NewReader(tt.payload))
			if err == nil {
				t.Fatal("Decode() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Decode() error = %v, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestParseRAWAction(t *testing.T) {
	for _, a := range []RAWAction{RAWDisable, RAWEnable, RAWDelete} {
		got, err := ParseRAWAction(a.String())
		if err != nil || got != a {
			t.Errorf("ParseRAWAction(%q) = %v, %v", a.String(), got, err)
		}
	}
	if _, err := ParseRAWAction("toggle"); err == nil {
		t.Error("ParseRAWAction(\"toggle\") expected error")
	}
}
