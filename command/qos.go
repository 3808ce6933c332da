package command

import "github.com/moffa90/go-morsectl/protocol"

// QoSQueueInvalid is reserved and never names a queue.
const QoSQueueInvalid = 0xFF

const qosRequestSize = 10

// SetQoS changes the EDCA parameters of one queue. Unset fields keep the
// firmware value.
//
// Payload (10 bytes):
//
//	[QUEUE(1)][AIFS(1)][CW_MIN(2)][CW_MAX(2)][MAX_TXOP_US(4)]
type SetQoS struct {
	Queue     uint8            `json:"queue" yaml:"queue"`
	AIFS      Optional[uint8]  `json:"aifs" yaml:"aifs"`
	CWMin     Optional[uint16] `json:"cw_min" yaml:"cw_min"`
	CWMax     Optional[uint16] `json:"cw_max" yaml:"cw_max"`
	MaxTXOPUs Optional[uint32] `json:"max_txop_us" yaml:"max_txop_us"`
}

func (c *SetQoS) MaxPayloadSize() int { return qosRequestSize }

func (c *SetQoS) Validate() error {
	if c.Queue == QoSQueueInvalid {
		return invalid(NameSetQoS, "queue", "%d is not a queue", c.Queue)
	}
	if c.CWMin.Set != c.CWMax.Set {
		return invalid(NameSetQoS, "cw", "contention window min and max must be given together")
	}
	if c.CWMin.Set && c.CWMin.Value > c.CWMax.Value {
		return invalid(NameSetQoS, "cw", "min %d exceeds max %d", c.CWMin.Value, c.CWMax.Value)
	}
	return firstError(
		notSentinel(NameSetQoS, "aifs", c.AIFS, unsetU8),
		notSentinel(NameSetQoS, "cw_min", c.CWMin, unsetU16),
		notSentinel(NameSetQoS, "cw_max", c.CWMax, unsetU16),
		notSentinel(NameSetQoS, "max_txop_us", c.MaxTXOPUs, unsetU32),
	)
}

func (c *SetQoS) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U8(c.Queue)
		w.U8(wire(c.AIFS, unsetU8))
		w.U16(wire(c.CWMin, unsetU16))
		w.U16(wire(c.CWMax, unsetU16))
		w.U32(wire(c.MaxTXOPUs, unsetU32))
	})
}

func (c *SetQoS) Decode(r *protocol.Reader) error {
	c.Queue = r.U8()
	c.AIFS = fromWire(r.U8(), unsetU8)
	c.CWMin = fromWire(r.U16(), unsetU16)
	c.CWMax = fromWire(r.U16(), unsetU16)
	c.MaxTXOPUs = fromWire(r.U32(), unsetU32)
	return r.Err()
}

// GetQoS reads the EDCA parameters of one queue. It shares the SetQoS
// layout with every parameter left at the default sentinel.
type GetQoS struct {
	Queue uint8 `json:"queue" yaml:"queue"`
}

func (c *GetQoS) MaxPayloadSize() int { return qosRequestSize }

func (c *GetQoS) Validate() error {
	if c.Queue == QoSQueueInvalid {
		return invalid(NameGetQoS, "queue", "%d is not a queue", c.Queue)
	}
	return nil
}

func (c *GetQoS) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U8(c.Queue)
		w.U8(unsetU8)
		w.U16(unsetU16)
		w.U16(unsetU16)
		w.U32(unsetU32)
	})
}

func (c *GetQoS) Decode(r *protocol.Reader) error {
	c.Queue = r.U8()
	r.Bytes(qosRequestSize - 1)
	return r.Err()
}

// QoSParams is the confirm of both QoS commands.
//
// Payload (9 bytes):
//
//	[AIFS(1)][CW_MIN(2)][CW_MAX(2)][MAX_TXOP_US(4)]
type QoSParams struct {
	AIFS      uint8  `json:"aifs" yaml:"aifs"`
	CWMin     uint16 `json:"cw_min" yaml:"cw_min"`
	CWMax     uint16 `json:"cw_max" yaml:"cw_max"`
	MaxTXOPUs uint32 `json:"max_txop_us" yaml:"max_txop_us"`
}

func (c *QoSParams) PayloadSize() int { return 9 }

func (c *QoSParams) Encode(w *protocol.Writer) error {
	w.U8(c.AIFS)
	w.U16(c.CWMin)
	w.U16(c.CWMax)
	w.U32(c.MaxTXOPUs)
	return w.Err()
}

func (c *QoSParams) Decode(r *protocol.Reader) error {
	c.AIFS = r.U8()
	c.CWMin = r.U16()
	c.CWMax = r.U16()
	c.MaxTXOPUs = r.U32()
	return r.Err()
}
