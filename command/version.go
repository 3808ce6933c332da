package command

import "github.com/moffa90/go-morsectl/protocol"

// VersionStringSize is the fixed size of the version string field.
const VersionStringSize = 128

// Version is the confirm of the get-version command.
//
// Payload (132 bytes):
//
//	[LENGTH(4, signed)][VERSION(128)]
type Version struct {
	Version string `json:"version" yaml:"version"`
}

func (v *Version) PayloadSize() int { return 4 + VersionStringSize }

func (v *Version) Encode(w *protocol.Writer) error {
	if len(v.Version) > VersionStringSize {
		return invalid(NameVersion, "version", "%d bytes exceeds %d", len(v.Version), VersionStringSize)
	}
	field := make([]byte, VersionStringSize)
	copy(field, v.Version)
	w.I32(int32(len(v.Version)))
	w.Bytes(field)
	return w.Err()
}

// Decode clamps the reported length to the field size.
func (v *Version) Decode(r *protocol.Reader) error {
	n := int(r.I32())
	field := r.Bytes(VersionStringSize)
	if err := r.Err(); err != nil {
		return err
	}
	if n < 0 {
		n = 0
	}
	if n > VersionStringSize {
		n = VersionStringSize
	}
	v.Version = string(field[:n])
	return nil
}
