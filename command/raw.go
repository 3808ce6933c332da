package command

import (
	"fmt"

	"github.com/moffa90/go-morsectl/protocol"
)

// RAW config flags.
const (
	RAWFlagEnable uint32 = 1 << 0
	RAWFlagDelete uint32 = 1 << 1
	RAWFlagUpdate uint32 = 1 << 2
)

// RAW TLV tags, in canonical write order.
const (
	RAWTagSlotDef   uint8 = 0
	RAWTagGroup     uint8 = 1
	RAWTagStartTime uint8 = 2
	RAWTagPRAW      uint8 = 3
	RAWTagBcnSpread uint8 = 4
)

const (
	numRAWTags    = 5
	rawPrefixSize = 6
)

// TLV sizes including the tag byte.
const (
	RAWSlotDefSize   = 7
	RAWGroupSize     = 5
	RAWStartTimeSize = 5
	RAWPRAWSize      = 5
	RAWBcnSpreadSize = 5
)

// RAW limits.
const (
	RAWMaxSlots       = 63
	RAWMinSlotDurUs   = 500
	RAWMaxSlotDurUs   = RAWMinSlotDurUs + 200*(1<<11) - 1
	RAWMaxStartTimeUs = 255 * 2 * 1024
	RAWMaxAID         = 2007

	// RAWPersistentValidity marks a periodic RAW that never expires
	RAWPersistentValidity = 255
)

// RAWAction selects what the RAW command does with the config id.
type RAWAction uint8

const (
	RAWDisable RAWAction = iota
	RAWEnable
	RAWDelete
)

func (a RAWAction) String() string {
	switch a {
	case RAWEnable:
		return "enable"
	case RAWDelete:
		return "delete"
	default:
		return "disable"
	}
}

// MarshalText renders the action by name.
func (a RAWAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseRAWAction converts "enable", "disable" or "delete".
func ParseRAWAction(s string) (RAWAction, error) {
	switch s {
	case "enable":
		return RAWEnable, nil
	case "disable":
		return RAWDisable, nil
	case "delete":
		return RAWDelete, nil
	default:
		return 0, invalid(NameRAW, "action", "unknown action %q", s)
	}
}

// SlotDefinition splits the RAW window into equal slots.
type SlotDefinition struct {
	// DurationUs is the total window length; DurationUs / NumSlots is the slot length
	DurationUs uint32 `json:"duration_us" yaml:"duration_us"`
	NumSlots   uint8  `json:"num_slots" yaml:"num_slots"`
}

// AIDGroup restricts the window to a range of association ids.
type AIDGroup struct {
	Start uint16 `json:"start" yaml:"start"`
	End   uint16 `json:"end" yaml:"end"`
}

// PeriodicRAW repeats the window every Periodicity beacons.
type PeriodicRAW struct {
	Periodicity uint8 `json:"periodicity" yaml:"periodicity"`

	// Validity is the number of periods the config stays active; ignored when Persistent
	Validity   uint8 `json:"validity" yaml:"validity"`
	Persistent bool  `json:"persistent" yaml:"persistent"`

	StartOffset uint8 `json:"start_offset" yaml:"start_offset"`
}

// BeaconSpread spreads the stations of the window across beacons.
type BeaconSpread struct {
	MaxSpread        uint16 `json:"max_spread" yaml:"max_spread"`
	NominalSTAPerBcn uint16 `json:"nominal_sta_per_bcn" yaml:"nominal_sta_per_bcn"`
}

// RAW configures a restricted access window.
//
// Payload: [FLAGS(4)][ID(2)] followed by the TLV chain written in tag order.
// Each TLV is a tag byte and a fixed-size value with no length field:
//
//	SLOT_DEF   [0][DURATION_US(4)][NUM_SLOTS(1)][CROSS_SLOT(1)]
//	GROUP      [1][AID_START(2)][AID_END(2)]
//	START_TIME [2][START_TIME_US(4)]
//	PRAW       [3][PERIODICITY(1)][VALIDITY(1)][START_OFFSET(1)][REFRESH(1)]
//	BCN_SPREAD [4][MAX_SPREAD(2)][NOMINAL_STA_PER_BCN(2)]
//
// Id 0 addresses every config and may not carry TLVs. Any TLV sets the
// UPDATE flag. A delete sends only the flags and id.
type RAW struct {
	ID     uint16    `json:"id" yaml:"id"`
	Action RAWAction `json:"action" yaml:"action"`

	SlotDef Optional[SlotDefinition] `json:"slot_def" yaml:"slot_def"`

	// CrossSlot lets transmissions bleed into the next slot; needs SlotDef
	CrossSlot bool `json:"cross_slot" yaml:"cross_slot"`

	Group        Optional[AIDGroup]     `json:"aid_group" yaml:"aid_group"`
	StartTimeUs  Optional[uint32]       `json:"start_time_us" yaml:"start_time_us"`
	PRAW         Optional[PeriodicRAW]  `json:"praw" yaml:"praw"`
	BeaconSpread Optional[BeaconSpread] `json:"bcn_spread" yaml:"bcn_spread"`
}

// MaxPayloadSize is the fixed prefix plus every TLV.
func (c *RAW) MaxPayloadSize() int {
	return rawPrefixSize + RAWSlotDefSize + RAWGroupSize + RAWStartTimeSize + RAWPRAWSize + RAWBcnSpreadSize
}

func (c *RAW) hasTLVs() bool {
	return c.SlotDef.Set || c.Group.Set || c.StartTimeUs.Set || c.PRAW.Set || c.BeaconSpread.Set
}

// TLVLength is the size of the TLV chain Encode writes.
func (c *RAW) TLVLength() int {
	if c.Action == RAWDelete {
		return 0
	}
	n := 0
	if c.SlotDef.Set {
		n += RAWSlotDefSize
	}
	if c.Group.Set {
		n += RAWGroupSize
	}
	if c.StartTimeUs.Set {
		n += RAWStartTimeSize
	}
	if c.PRAW.Set {
		n += RAWPRAWSize
	}
	if c.BeaconSpread.Set {
		n += RAWBcnSpreadSize
	}
	return n
}

// Flags returns the flag word Encode writes.
func (c *RAW) Flags() uint32 {
	var flags uint32
	switch c.Action {
	case RAWEnable:
		flags |= RAWFlagEnable
	case RAWDelete:
		return RAWFlagDelete
	}
	if c.hasTLVs() {
		flags |= RAWFlagUpdate
	}
	return flags
}

func (c *RAW) Validate() error {
	if c.Action > RAWDelete {
		return invalid(NameRAW, "action", "unknown action %d", c.Action)
	}
	if c.Action == RAWDelete {
		return nil
	}
	if c.PRAW.Set && c.BeaconSpread.Set {
		return invalid(NameRAW, "praw", "beacon spreading and periodic RAW are not supported together")
	}
	if c.hasTLVs() && c.ID == 0 {
		return invalid(NameRAW, "id", "options can't be set when configuring global RAW (id 0)")
	}
	if c.SlotDef.Set {
		if err := validateSlotDef(c.SlotDef.Value); err != nil {
			return err
		}
	}
	if c.Group.Set {
		g := c.Group.Value
		if g.Start > g.End {
			return invalid(NameRAW, "aid_group", "start %d exceeds end %d", g.Start, g.End)
		}
		if g.Start < 1 || g.End > RAWMaxAID {
			return invalid(NameRAW, "aid_group", "range %d-%d outside [1, %d]", g.Start, g.End, RAWMaxAID)
		}
	}
	if c.StartTimeUs.Set {
		if err := inRange(NameRAW, "start_time_us", c.StartTimeUs.Value, 0, RAWMaxStartTimeUs); err != nil {
			return err
		}
	}
	if c.PRAW.Set {
		if err := validatePRAW(c.PRAW.Value); err != nil {
			return err
		}
	}
	return nil
}

func validateSlotDef(s SlotDefinition) error {
	if err := inRange(NameRAW, "num_slots", s.NumSlots, 1, RAWMaxSlots); err != nil {
		return err
	}
	lo := uint64(s.NumSlots) * RAWMinSlotDurUs
	hi := uint64(s.NumSlots) * RAWMaxSlotDurUs
	return inRange(NameRAW, "duration_us", uint64(s.DurationUs), lo, hi)
}

func validatePRAW(p PeriodicRAW) error {
	if p.Periodicity < 1 {
		return invalid(NameRAW, "periodicity", "must be 1-255")
	}
	if !p.Persistent && p.Validity < 1 {
		return invalid(NameRAW, "validity", "must be 1-255, or persistent")
	}
	if p.StartOffset >= p.Periodicity {
		return invalid(NameRAW, "start_offset", "%d must be less than periodicity %d", p.StartOffset, p.Periodicity)
	}
	return nil
}

// Warnings reports inputs Encode drops.
func (c *RAW) Warnings() []string {
	var warnings []string
	if c.Action == RAWDelete {
		if c.hasTLVs() || c.CrossSlot {
			warnings = append(warnings, "options are ignored when deleting a RAW config")
		}
		return warnings
	}
	if c.CrossSlot && !c.SlotDef.Set {
		warnings = append(warnings, "cross slot is ignored without a slot definition")
	}
	return warnings
}

func (c *RAW) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U32(c.Flags())
		w.U16(c.ID)
		if c.Action == RAWDelete {
			return
		}
		if s, ok := c.SlotDef.Get(); ok {
			w.U8(RAWTagSlotDef)
			w.U32(s.DurationUs)
			w.U8(s.NumSlots)
			w.Bool(c.CrossSlot)
		}
		if g, ok := c.Group.Get(); ok {
			w.U8(RAWTagGroup)
			w.U16(g.Start)
			w.U16(g.End)
		}
		if t, ok := c.StartTimeUs.Get(); ok {
			w.U8(RAWTagStartTime)
			w.U32(t)
		}
		if p, ok := c.PRAW.Get(); ok {
			validity, refresh := p.Validity, false
			if p.Persistent {
				validity, refresh = RAWPersistentValidity, true
			}
			w.U8(RAWTagPRAW)
			w.U8(p.Periodicity)
			w.U8(validity)
			w.U8(p.StartOffset)
			w.Bool(refresh)
		}
		if b, ok := c.BeaconSpread.Get(); ok {
			w.U8(RAWTagBcnSpread)
			w.U16(b.MaxSpread)
			w.U16(b.NominalSTAPerBcn)
		}
	})
}

// Decode walks the TLV chain until the payload is exhausted. Unknown or
// repeated tags are rejected.
func (c *RAW) Decode(r *protocol.Reader) error {
	*c = RAW{}
	flags := r.U32()
	c.ID = r.U16()
	if err := r.Err(); err != nil {
		return err
	}
	switch {
	case flags&RAWFlagDelete != 0:
		c.Action = RAWDelete
	case flags&RAWFlagEnable != 0:
		c.Action = RAWEnable
	}

	var seen [numRAWTags]bool
	for r.Remaining() > 0 {
		tag := r.U8()
		if int(tag) >= numRAWTags {
			return &protocol.ProtocolError{Command: NameRAW, Reason: fmt.Sprintf("unknown TLV tag %d", tag)}
		}
		if seen[tag] {
			return &protocol.ProtocolError{Command: NameRAW, Reason: fmt.Sprintf("TLV tag %d repeated", tag)}
		}
		seen[tag] = true

		switch tag {
		case RAWTagSlotDef:
			s := SlotDefinition{DurationUs: r.U32(), NumSlots: r.U8()}
			c.CrossSlot = r.Bool()
			c.SlotDef = Some(s)
		case RAWTagGroup:
			c.Group = Some(AIDGroup{Start: r.U16(), End: r.U16()})
		case RAWTagStartTime:
			c.StartTimeUs = Some(r.U32())
		case RAWTagPRAW:
			p := PeriodicRAW{Periodicity: r.U8(), Validity: r.U8(), StartOffset: r.U8()}
			if r.Bool() {
				p.Persistent = true
				p.Validity = 0
			}
			c.PRAW = Some(p)
		case RAWTagBcnSpread:
			c.BeaconSpread = Some(BeaconSpread{MaxSpread: r.U16(), NominalSTAPerBcn: r.U16()})
		}
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}
