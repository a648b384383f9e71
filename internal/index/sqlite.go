package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/media-luna/landmarkid/internal/errs"
	"github.com/media-luna/landmarkid/internal/fingerprint"
	"github.com/media-luna/landmarkid/internal/logger"
)

// SQLiteIndex is the default Index backend: one file, WAL journaling,
// foreign keys enforced.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) the sqlite file at path with WAL
// journaling and foreign-key enforcement turned on via DSN pragmas — both
// are per-connection settings in sqlite, so they are requested here rather
// than via a one-off PRAGMA statement that only affects the first
// connection in the pool.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreIO, "index.OpenSQLite", err)
	}
	if err := db.Ping(); err != nil {
		return nil, errs.Wrap(errs.KindStoreIO, "index.OpenSQLite", err)
	}
	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Close() error { return s.db.Close() }

func (s *SQLiteIndex) Init(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		source_path TEXT UNIQUE,
		enrolled_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS fingerprints (
		hash INTEGER NOT NULL,
		anchor_time_idx INTEGER NOT NULL,
		recording_id INTEGER NOT NULL REFERENCES recordings(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_recording_id ON fingerprints(recording_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errs.Wrap(errs.KindStoreIO, "index.Init", err)
	}
	return nil
}

func (s *SQLiteIndex) Enroll(ctx context.Context, name, sourcePath string, fps []fingerprint.Fingerprint) (uint64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
	}
	defer tx.Rollback()

	var recordingID uint64
	replaced := false

	if sourcePath != "" {
		err := tx.QueryRowContext(ctx, `SELECT id FROM recordings WHERE source_path = ?`, sourcePath).Scan(&recordingID)
		switch {
		case err == sql.ErrNoRows:
			// fall through to insert below
		case err != nil:
			return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
		default:
			replaced = true
			if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE recording_id = ?`, recordingID); err != nil {
				return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE recordings SET name = ?, enrolled_at = ? WHERE id = ?`, name, time.Now().UTC(), recordingID); err != nil {
				return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
			}
		}
	}

	if !replaced {
		var sp sql.NullString
		if sourcePath != "" {
			sp = sql.NullString{String: sourcePath, Valid: true}
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO recordings (name, source_path, enrolled_at) VALUES (?, ?, ?)`, name, sp, time.Now().UTC())
		if err != nil {
			return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
		}
		recordingID = uint64(id)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fingerprints (hash, anchor_time_idx, recording_id) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
	}
	defer stmt.Close()

	for _, fp := range fps {
		if _, err := stmt.ExecContext(ctx, toSigned(fp.Hash), fp.AnchorTimeIdx, recordingID); err != nil {
			return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
	}

	logger.Info("enrolled recording", "id", recordingID, "name", name, "fingerprints", len(fps), "replaced", replaced)
	return recordingID, replaced, nil
}

func (s *SQLiteIndex) Lookup(ctx context.Context, hash uint64) ([]AnchorRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT recording_id, anchor_time_idx FROM fingerprints WHERE hash = ?`, toSigned(hash))
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreIO, "index.Lookup", err)
	}
	defer rows.Close()

	var refs []AnchorRef
	for rows.Next() {
		var rec uint64
		var anchor uint32
		if err := rows.Scan(&rec, &anchor); err != nil {
			return nil, errs.Wrap(errs.KindStoreIO, "index.Lookup", err)
		}
		refs = append(refs, AnchorRef{RecordingID: rec, AnchorTimeIdx: anchor})
	}
	return refs, rows.Err()
}

func (s *SQLiteIndex) GetRecording(ctx context.Context, id uint64) (Recording, error) {
	var r Recording
	var sp sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name, source_path, enrolled_at FROM recordings WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &sp, &r.EnrolledAt)
	if err == sql.ErrNoRows {
		return Recording{}, errs.WrapRecording(errs.KindReferential, "index.GetRecording", id, err)
	}
	if err != nil {
		return Recording{}, errs.Wrap(errs.KindStoreIO, "index.GetRecording", err)
	}
	r.SourcePath = sp.String
	return r, nil
}

func (s *SQLiteIndex) ListRecordings(ctx context.Context) ([]RecordingSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.source_path, r.enrolled_at, COUNT(f.hash)
		FROM recordings r
		LEFT JOIN fingerprints f ON f.recording_id = r.id
		GROUP BY r.id
		ORDER BY r.name`)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreIO, "index.ListRecordings", err)
	}
	defer rows.Close()

	var out []RecordingSummary
	for rows.Next() {
		var rs RecordingSummary
		var sp sql.NullString
		if err := rows.Scan(&rs.ID, &rs.Name, &sp, &rs.EnrolledAt, &rs.FingerprintCount); err != nil {
			return nil, errs.Wrap(errs.KindStoreIO, "index.ListRecordings", err)
		}
		rs.SourcePath = sp.String
		out = append(out, rs)
	}
	return out, rows.Err()
}
