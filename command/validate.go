package command

import (
	"fmt"

	"github.com/moffa90/go-morsectl/protocol"
)

func invalid(cmd, field, format string, args ...interface{}) *protocol.ValidationError {
	return &protocol.ValidationError{
		Command: cmd,
		Field:   field,
		Reason:  fmt.Sprintf(format, args...),
	}
}

// inRange checks lo <= v <= hi.
func inRange[T integer](cmd, field string, v, lo, hi T) error {
	if v < lo || v > hi {
		return invalid(cmd, field, "%v out of range [%v, %v]", v, lo, hi)
	}
	return nil
}

// atLeast checks v >= lo.
func atLeast[T integer](cmd, field string, v, lo T) error {
	if v < lo {
		return invalid(cmd, field, "%v below minimum %v", v, lo)
	}
	return nil
}

// optionalInRange checks an Optional only when it is set.
func optionalInRange[T integer](cmd, field string, o Optional[T], lo, hi T) error {
	if !o.Set {
		return nil
	}
	return inRange(cmd, field, o.Value, lo, hi)
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
