// Package errs defines the closed error taxonomy the engine propagates:
// every error surfaced by a component carries one of a fixed set of Kinds
// so callers can branch on failure class without parsing messages.
package errs

import (
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Kind is a closed enumeration of failure classes. Every error built with
// Wrap or WrapRecording carries one of them. Not every returned error is
// built that way: the index backends return row-iteration errors as they
// come, index.Open reports an unknown driver with a plain error, and
// config.Load returns file and YAML errors unwrapped; those carry no Kind.
type Kind int

const (
	// KindInputShape covers malformed or out-of-range input: empty sample
	// vectors, non-positive window/hop sizes, unknown config fields.
	KindInputShape Kind = iota
	// KindStoreIO covers failures opening, reading, or writing the
	// fingerprint index (disk I/O, connection errors, broken transactions).
	KindStoreIO
	// KindReferential covers references to recordings that do not exist
	// (lookup/delete by unknown R_id).
	KindReferential
	// KindDecoder covers failures in the audio decode collaborator
	// (unreadable file, unsupported format).
	KindDecoder
)

func (k Kind) String() string {
	switch k {
	case KindInputShape:
		return "input-shape"
	case KindStoreIO:
		return "store-io"
	case KindReferential:
		return "referential"
	case KindDecoder:
		return "decoder"
	default:
		return "unknown"
	}
}

// Error is the concrete type Wrap and WrapRecording return. RecordingID is set
// when the failure is tied to a specific recording.
type Error struct {
	Kind        Kind
	Op          string
	RecordingID *uint64
	Err         error
}

func (e *Error) Error() string {
	if e.RecordingID != nil {
		return fmt.Sprintf("%s: %s (recording %d): %v", e.Op, e.Kind, *e.RecordingID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches a stack trace to cause via go-xerrors, then tags it with a
// Kind and the operation name for propagation up to the CLI layer.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: xerrors.New(cause)}
}

// WrapRecording is Wrap plus the affected recording id, used by index
// operations that act on a known R_id.
func WrapRecording(kind Kind, op string, recordingID uint64, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, RecordingID: &recordingID, Err: xerrors.New(cause)}
}

// Is reports whether err (or a wrapped cause) is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if x, ok := err.(*Error); ok {
			e = x
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
