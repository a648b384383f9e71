// Package index is the only stateful component in the engine. It persists
// recordings and their fingerprints and answers hash lookups for matching,
// behind one Index interface with a sqlite and a Postgres backend.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/media-luna/landmarkid/internal/fingerprint"
)

// Recording is one enrolled entry.
type Recording struct {
	ID         uint64
	Name       string
	SourcePath string // empty when enrolled without a source path
	EnrolledAt time.Time
}

// AnchorRef is one (recording, anchor time) pair returned by a hash lookup.
type AnchorRef struct {
	RecordingID   uint64
	AnchorTimeIdx uint32
}

// Index is the storage contract the matcher and the CLI depend on. All
// methods are safe for concurrent use.
type Index interface {
	// Init creates the schema if it does not already exist (idempotent).
	Init(ctx context.Context) error

	// Enroll stores fingerprints under a recording identified by name and
	// an optional sourcePath. If sourcePath is non-empty and already
	// enrolled, its fingerprints are atomically replaced and the existing
	// recording id is reused, so re-enrollment is idempotent; otherwise a
	// new recording is created.
	Enroll(ctx context.Context, name, sourcePath string, fps []fingerprint.Fingerprint) (recordingID uint64, replaced bool, err error)

	// Lookup returns every (recording, anchor time) pair stored under hash.
	Lookup(ctx context.Context, hash uint64) ([]AnchorRef, error)

	// GetRecording returns one recording by id.
	GetRecording(ctx context.Context, id uint64) (Recording, error)

	// ListRecordings returns every recording ordered by name, alongside its
	// fingerprint count.
	ListRecordings(ctx context.Context) ([]RecordingSummary, error)

	Close() error
}

// RecordingSummary is a Recording plus its stored fingerprint count, used
// by the CLI's list command.
type RecordingSummary struct {
	Recording
	FingerprintCount int
}

// Open selects a backend by driver name ("sqlite" or "postgres").
func Open(driver, dsn string) (Index, error) {
	switch driver {
	case "sqlite", "":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", driver)
	}
}

// toSigned and toUnsigned round-trip a landmark hash through a signed
// 64-bit column without loss: Go's int64(uint64) conversion is already a
// bit-for-bit two's-complement reinterpretation, and the reverse
// uint64(int64) undoes it exactly, so no masking or range check is needed
// here even though hashes only ever populate the low 28 bits (Bf+Bf+Bt).
func toSigned(h uint64) int64   { return int64(h) }
func toUnsigned(h int64) uint64 { return uint64(h) }
