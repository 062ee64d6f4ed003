package envelope

import (
	"fmt"

	"github.com/pkg/errors"
)

type FrameErrorKind int

const (
	KindBadMagic FrameErrorKind = iota
	KindTooShort
	KindEmptyPayload
)

var (
	ErrBadMagic     = errors.New("envelope: bad magic")
	ErrTooShort     = errors.New("envelope: too short")
	ErrEmptyPayload = errors.New("envelope: empty payload")
)

func (k FrameErrorKind) sentinel() error {
	switch k {
	case KindBadMagic:
		return ErrBadMagic
	case KindTooShort:
		return ErrTooShort
	default:
		return ErrEmptyPayload
	}
}

// FrameError describes a malformed envelope.
type FrameError struct {
	Kind   FrameErrorKind
	Length int
}

func newFrameError(kind FrameErrorKind, length int) *FrameError {
	return &FrameError{Kind: kind, Length: length}
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%v (%d bytes)", e.Kind.sentinel(), e.Length)
}

func (e *FrameError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Reason is the log wording for the failure.
func (e *FrameError) Reason() string {
	switch e.Kind {
	case KindBadMagic:
		return "it was not authenticated"
	case KindTooShort:
		return "it was too short"
	default:
		return "it was empty"
	}
}
