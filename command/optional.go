package command

import (
	"encoding/json"
	"fmt"
)

// Optional is a field the caller may leave at the firmware default.
//
// On the wire an unset field is written as the field's default sentinel
// (all ones for unsigned fields, -1 for signed ones). Setting a field to
// its sentinel value is rejected by validation.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// Or returns the value if set, otherwise def.
func (o Optional[T]) Or(def T) T {
	if o.Set {
		return o.Value
	}
	return def
}

func (o Optional[T]) String() string {
	if !o.Set {
		return "default"
	}
	return fmt.Sprint(o.Value)
}

// MarshalJSON renders an unset field as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// MarshalYAML renders an unset field as null.
func (o Optional[T]) MarshalYAML() (interface{}, error) {
	if !o.Set {
		return nil, nil
	}
	return o.Value, nil
}

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

const (
	unsetU8  uint8  = 0xFF
	unsetU16 uint16 = 0xFFFF
	unsetU32 uint32 = 0xFFFFFFFF
	unsetI8  int8   = -1
	unsetI32 int32  = -1
)

// wire returns the value to write for o, using sentinel when unset.
func wire[T integer](o Optional[T], sentinel T) T {
	if o.Set {
		return o.Value
	}
	return sentinel
}

// fromWire is the inverse of wire.
func fromWire[T integer](v, sentinel T) Optional[T] {
	if v == sentinel {
		return Optional[T]{}
	}
	return Some(v)
}

// notSentinel rejects an explicitly set value the firmware would read as default.
func notSentinel[T integer](cmd, field string, o Optional[T], sentinel T) error {
	if o.Set && o.Value == sentinel {
		return invalid(cmd, field, "%v is reserved for the firmware default, leave the field unset instead", o.Value)
	}
	return nil
}

// flag encodes an optional boolean as a signed byte: -1 unset, 0 or 1.
func flag(o Optional[bool]) int8 {
	switch {
	case !o.Set:
		return unsetI8
	case o.Value:
		return 1
	default:
		return 0
	}
}

func flagFromWire(v int8) Optional[bool] {
	if v == unsetI8 {
		return Optional[bool]{}
	}
	return Some(v != 0)
}
