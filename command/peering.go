package command

import "github.com/moffa90/go-morsectl/protocol"

// Dynamic peering limits.
const (
	RSSIMarginMin       = 3
	RSSIMarginMax       = 30
	BlacklistTimeoutMin = 10
	BlacklistTimeoutMax = 600
)

// DynamicPeering configures mesh dynamic peering.
//
// Payload (6 bytes):
//
//	[ENABLED(1)][RSSI_MARGIN(1)][BLACKLIST_TIMEOUT(4)]
type DynamicPeering struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// RSSIMargin is the margin in dB used when picking a peer to kick out
	RSSIMargin uint8 `json:"rssi_margin" yaml:"rssi_margin"`

	// BlacklistTimeout is how long, in seconds, a kicked-out peer is refused
	BlacklistTimeout uint32 `json:"blacklist_timeout" yaml:"blacklist_timeout"`
}

func (c *DynamicPeering) MaxPayloadSize() int { return 6 }

func (c *DynamicPeering) Validate() error {
	return firstError(
		inRange(NameDynamicPeering, "rssi_margin", c.RSSIMargin, RSSIMarginMin, RSSIMarginMax),
		inRange(NameDynamicPeering, "blacklist_timeout", c.BlacklistTimeout, BlacklistTimeoutMin, BlacklistTimeoutMax),
	)
}

func (c *DynamicPeering) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.Bool(c.Enabled)
		w.U8(c.RSSIMargin)
		w.U32(c.BlacklistTimeout)
	})
}

func (c *DynamicPeering) Decode(r *protocol.Reader) error {
	c.Enabled = r.Bool()
	c.RSSIMargin = r.U8()
	c.BlacklistTimeout = r.U32()
	return r.Err()
}
