package command

import "github.com/moffa90/go-morsectl/protocol"

// Request is the typed payload of a command sent to the chip.
type Request interface {
	// MaxPayloadSize is the largest payload Encode can produce.
	// Dispatch sizes the request buffer from it.
	MaxPayloadSize() int

	// Validate checks field ranges and sibling relationships.
	// It returns a *protocol.ValidationError on the first violation.
	Validate() error

	// Encode validates the request and writes its payload.
	Encode(w *protocol.Writer) error

	// Decode reads a payload previously produced by Encode.
	Decode(r *protocol.Reader) error
}

// Response is the typed payload of a confirm.
type Response interface {
	// PayloadSize is the exact number of payload bytes the confirm carries.
	PayloadSize() int

	Encode(w *protocol.Writer) error
	Decode(r *protocol.Reader) error
}

// Warner is implemented by requests that accept inputs they silently drop.
// Dispatch logs every warning before the request is built.
type Warner interface {
	Warnings() []string
}

// Empty is the request or response of a command without payload.
type Empty struct{}

func (Empty) MaxPayloadSize() int             { return 0 }
func (Empty) PayloadSize() int                { return 0 }
func (Empty) Validate() error                 { return nil }
func (Empty) Encode(w *protocol.Writer) error { return nil }
func (Empty) Decode(r *protocol.Reader) error { return nil }
func newEmptyRequest() Request                { return &Empty{} }
func newEmptyResponse() Response              { return &Empty{} }

// Descriptor is the static record of one command.
type Descriptor struct {
	// Name is the user-facing command name
	Name string

	// ID is the message id carried in the header
	ID protocol.CommandID

	// Summary is a one-line description for listings
	Summary string

	// RequiresInterface is set when the command needs an open interface
	RequiresInterface bool

	// DirectChip is set when the command is usable on a direct-to-chip transport
	DirectChip bool

	// NewRequest returns a zero request for the command
	NewRequest func() Request

	// NewResponse returns a zero response for the command
	NewResponse func() Response
}

// encode is shared by every Encode implementation: validate, then write.
func encode(w *protocol.Writer, validate func() error, write func(w *protocol.Writer)) error {
	if err := validate(); err != nil {
		return err
	}
	write(w)
	return w.Err()
}
