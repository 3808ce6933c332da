// Package command defines the typed requests and responses of every
// supported chip command and the registry that maps names to them.
//
// Each request validates its fields before writing a single byte, so an
// out-of-range argument never produces a partial payload:
//
//	req := &command.DynamicPeering{Enabled: true, RSSIMargin: 10, BlacklistTimeout: 60}
//	buf := make([]byte, req.MaxPayloadSize())
//	w := protocol.NewWriter(buf)
//	if err := req.Encode(w); err != nil {
//	    // *protocol.ValidationError
//	}
//	payload := buf[:w.Len()]
//
// Fields the firmware can leave at its default are Optional; an unset
// Optional is encoded as the firmware's default sentinel.
//
// The registry is built once and never mutated:
//
//	desc, ok := command.Default().Lookup("raw")
package command
