package command

import "github.com/moffa90/go-morsectl/protocol"

// Tuning limits.
const (
	TxPktLifetimeMinUs = 50000
	TxPktLifetimeMaxUs = 500000
	IFSMinUs           = 160
	PHYDeafMaxMode     = 3
)

// TxPktLifetime sets how long a queued frame may wait before it is dropped.
//
// Payload (4 bytes): [LIFETIME_US(4)]
type TxPktLifetime struct {
	LifetimeUs uint32 `json:"lifetime_us" yaml:"lifetime_us"`
}

func (c *TxPktLifetime) MaxPayloadSize() int { return 4 }

func (c *TxPktLifetime) Validate() error {
	return inRange(NameTxPktLifetime, "lifetime_us", c.LifetimeUs, TxPktLifetimeMinUs, TxPktLifetimeMaxUs)
}

func (c *TxPktLifetime) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U32(c.LifetimeUs)
	})
}

func (c *TxPktLifetime) Decode(r *protocol.Reader) error {
	c.LifetimeUs = r.U32()
	return r.Err()
}

// IFS sets the inter-frame spacing.
//
// Payload (4 bytes): [IFS_US(4)]
type IFS struct {
	SpacingUs uint32 `json:"ifs_us" yaml:"ifs_us"`
}

func (c *IFS) MaxPayloadSize() int { return 4 }

func (c *IFS) Validate() error {
	return atLeast(NameIFS, "ifs_us", c.SpacingUs, IFSMinUs)
}

func (c *IFS) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U32(c.SpacingUs)
	})
}

func (c *IFS) Decode(r *protocol.Reader) error {
	c.SpacingUs = r.U32()
	return r.Err()
}

// PHYDeaf blocks the PHY from receiving or transmitting.
//
// Payload (1 byte): [MODE(1)]
type PHYDeaf struct {
	Mode uint8 `json:"mode" yaml:"mode"`
}

func (c *PHYDeaf) MaxPayloadSize() int { return 1 }

func (c *PHYDeaf) Validate() error {
	return inRange(NamePHYDeaf, "mode", c.Mode, 0, PHYDeafMaxMode)
}

func (c *PHYDeaf) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U8(c.Mode)
	})
}

func (c *PHYDeaf) Decode(r *protocol.Reader) error {
	c.Mode = r.U8()
	return r.Err()
}

// STAType sets the S1G station type advertised by the driver.
//
// Payload (1 byte): [STA_TYPE(1)]
type STAType struct {
	Type uint8 `json:"sta_type" yaml:"sta_type"`
}

func (c *STAType) MaxPayloadSize() int { return 1 }
func (c *STAType) Validate() error     { return nil }

func (c *STAType) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U8(c.Type)
	})
}

func (c *STAType) Decode(r *protocol.Reader) error {
	c.Type = r.U8()
	return r.Err()
}

// EncMode sets the TIM encoding mode used by the driver.
//
// Payload (1 byte): [ENC_MODE(1)]
type EncMode struct {
	Mode uint8 `json:"enc_mode" yaml:"enc_mode"`
}

func (c *EncMode) MaxPayloadSize() int { return 1 }
func (c *EncMode) Validate() error     { return nil }

func (c *EncMode) Encode(w *protocol.Writer) error {
	return encode(w, c.Validate, func(w *protocol.Writer) {
		w.U8(c.Mode)
	})
}

func (c *EncMode) Decode(r *protocol.Reader) error {
	c.Mode = r.U8()
	return r.Err()
}
