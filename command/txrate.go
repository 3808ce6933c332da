package command

import "github.com/moffa90/go-morsectl/protocol"

// Transmission rate limits.
const (
	MCSMax    = 10
	FormatMax = 2
	NSSMax    = 4
)

// TxRate forces the transmission rate used for test traffic.
//
// Payload (18 bytes):
//
//	[MCS(4)][BW_MHZ(4)][FORMAT(4)][TRAV_PILOTS(1)][SGI(1)][ENABLED(1)][NSS_IDX(1)][LDPC(1)][STBC(1)]
//
// Signed fields use -1 for the firmware default. NSS is sent as an index
// (streams minus one).
type TxRate struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	MCS            Optional[int32] `json:"mcs" yaml:"mcs"`
	BandwidthMHz   Optional[int32] `json:"bandwidth_mhz" yaml:"bandwidth_mhz"`
	Format         Optional[int32] `json:"format" yaml:"format"`
	TravelingPilot Optional[bool]  `json:"traveling_pilots" yaml:"traveling_pilots"`
	ShortGI        Optional[bool]  `json:"sgi" yaml:"sgi"`
	NSS            Optional[uint8] `json:"nss" yaml:"nss"`
	LDPC           Optional[bool]  `json:"ldpc" yaml:"ldpc"`
	STBC           Optional[bool]  `json:"stbc" yaml:"stbc"`
}

func (c *TxRate) MaxPayloadSize() int { return 18 }

func (c *TxRate) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BandwidthMHz.Set && c.BandwidthMHz.Value <= 0 {
		return invalid(NameTxRate, "bandwidth_mhz", "%d must be positive", c.BandwidthMHz.Value)
	}
	return firstError(
		optionalInRange(NameTxRate, "mcs", c.MCS, 0, MCSMax),
		optionalInRange(NameTxRate, "format", c.Format, 0, FormatMax),
		optionalInRange(NameTxRate, "nss", c.NSS, 1, NSSMax),
	)
}

// Warnings reports rate options that are dropped because the override is
// disabled.
func (c *TxRate) Warnings() []string {
	if c.Enabled || !c.hasOptions() {
		return nil
	}
	return []string{"rate options are ignored when the override is disabled"}
}

func (c *TxRate) hasOptions() bool {
	return c.MCS.Set || c.BandwidthMHz.Set || c.Format.Set || c.TravelingPilot.Set ||
		c.ShortGI.Set || c.NSS.Set || c.LDPC.Set || c.STBC.Set
}

func (c *TxRate) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		if !c.Enabled {
			off := TxRate{}
			off.write(w)
			return
		}
		c.write(w)
	})
}

func (c *TxRate) write(w *protocol.Writer) {
	nss := unsetI8
	if c.NSS.Set {
		nss = int8(c.NSS.Value) - 1
	}
	w.I32(wire(c.MCS, unsetI32))
	w.I32(wire(c.BandwidthMHz, unsetI32))
	w.I32(wire(c.Format, unsetI32))
	w.I8(flag(c.TravelingPilot))
	w.I8(flag(c.ShortGI))
	w.Bool(c.Enabled)
	w.I8(nss)
	w.I8(flag(c.LDPC))
	w.I8(flag(c.STBC))
}

func (c *TxRate) Decode(r *protocol.Reader) error {
	c.MCS = fromWire(r.I32(), unsetI32)
	c.BandwidthMHz = fromWire(r.I32(), unsetI32)
	c.Format = fromWire(r.I32(), unsetI32)
	c.TravelingPilot = flagFromWire(r.I8())
	c.ShortGI = flagFromWire(r.I8())
	c.Enabled = r.Bool()
	if idx := r.I8(); idx != unsetI8 {
		c.NSS = Some(uint8(idx + 1))
	} else {
		c.NSS = Optional[uint8]{}
	}
	c.LDPC = flagFromWire(r.I8())
	c.STBC = flagFromWire(r.I8())
	return r.Err()
}
