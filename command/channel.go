package command

import "github.com/moffa90/go-morsectl/protocol"

// SetChannel tunes the radio.
//
// Payload (9 bytes):
//
//	[FREQ_HZ(4)][OP_BW_MHZ(1)][PRIM_BW_MHZ(1)][PRIM_1MHZ_IDX(1)][DOT11_MODE(1)][S1G_CHAN_POWER(1)]
//
// Unset bandwidth and index fields are sent as 0xFF so the firmware picks
// them from the regulatory channel map.
type SetChannel struct {
	FrequencyHz           uint32          `json:"frequency_hz" yaml:"frequency_hz"`
	OperatingBandwidthMHz Optional[uint8] `json:"operating_bw_mhz" yaml:"operating_bw_mhz"`
	PrimaryBandwidthMHz   Optional[uint8] `json:"primary_bw_mhz" yaml:"primary_bw_mhz"`
	Primary1MHzIndex      Optional[uint8] `json:"primary_1mhz_index" yaml:"primary_1mhz_index"`
	Dot11Mode             uint8           `json:"dot11_mode" yaml:"dot11_mode"`

	// S1GChanPower applies the S1G channel power limit when set
	S1GChanPower bool `json:"s1g_chan_power" yaml:"s1g_chan_power"`
}

func (c *SetChannel) MaxPayloadSize() int { return 9 }

func (c *SetChannel) Validate() error {
	if c.FrequencyHz == 0 {
		return invalid(NameSetChannel, "frequency_hz", "must be specified")
	}
	return firstError(
		notSentinel(NameSetChannel, "operating_bw_mhz", c.OperatingBandwidthMHz, unsetU8),
		notSentinel(NameSetChannel, "primary_bw_mhz", c.PrimaryBandwidthMHz, unsetU8),
		notSentinel(NameSetChannel, "primary_1mhz_index", c.Primary1MHzIndex, unsetU8),
	)
}

func (c *SetChannel) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U32(c.FrequencyHz)
		w.U8(wire(c.OperatingBandwidthMHz, unsetU8))
		w.U8(wire(c.PrimaryBandwidthMHz, unsetU8))
		w.U8(wire(c.Primary1MHzIndex, unsetU8))
		w.U8(c.Dot11Mode)
		w.Bool(c.S1GChanPower)
	})
}

func (c *SetChannel) Decode(r *protocol.Reader) error {
	c.FrequencyHz = r.U32()
	c.OperatingBandwidthMHz = fromWire(r.U8(), unsetU8)
	c.PrimaryBandwidthMHz = fromWire(r.U8(), unsetU8)
	c.Primary1MHzIndex = fromWire(r.U8(), unsetU8)
	c.Dot11Mode = r.U8()
	c.S1GChanPower = r.Bool()
	return r.Err()
}

// ChannelInfo is the confirm of the channel query commands.
//
// Payload (7 bytes):
//
//	[FREQ_HZ(4)][OP_BW_MHZ(1)][PRIM_BW_MHZ(1)][PRIM_1MHZ_IDX(1)]
type ChannelInfo struct {
	FrequencyHz           uint32 `json:"frequency_hz" yaml:"frequency_hz"`
	OperatingBandwidthMHz uint8  `json:"operating_bw_mhz" yaml:"operating_bw_mhz"`
	PrimaryBandwidthMHz   uint8  `json:"primary_bw_mhz" yaml:"primary_bw_mhz"`
	Primary1MHzIndex      uint8  `json:"primary_1mhz_index" yaml:"primary_1mhz_index"`
}

func (c *ChannelInfo) PayloadSize() int { return 7 }

func (c *ChannelInfo) Encode(w *protocol.Writer) error {
	w.U32(c.FrequencyHz)
	w.U8(c.OperatingBandwidthMHz)
	w.U8(c.PrimaryBandwidthMHz)
	w.U8(c.Primary1MHzIndex)
	return w.Err()
}

func (c *ChannelInfo) Decode(r *protocol.Reader) error {
	c.FrequencyHz = r.U32()
	c.OperatingBandwidthMHz = r.U8()
	c.PrimaryBandwidthMHz = r.U8()
	c.Primary1MHzIndex = r.U8()
	return r.Err()
}

// FrequencyKHz returns the operating frequency in kHz.
func (c *ChannelInfo) FrequencyKHz() uint32 {
	return c.FrequencyHz / 1000
}
