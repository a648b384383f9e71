package index

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/media-luna/landmarkid/internal/errs"
	"github.com/media-luna/landmarkid/internal/fingerprint"
	"github.com/media-luna/landmarkid/internal/logger"
)

// PostgresIndex is the alternate Index backend for deployments that already
// run Postgres, grounded on the corpus's own pgx/v5/stdlib-backed store.
type PostgresIndex struct {
	db *sql.DB
}

// OpenPostgres connects to dsn via the pgx stdlib driver.
func OpenPostgres(dsn string) (*PostgresIndex, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreIO, "index.OpenPostgres", err)
	}
	if err := db.Ping(); err != nil {
		return nil, errs.Wrap(errs.KindStoreIO, "index.OpenPostgres", err)
	}
	return &PostgresIndex{db: db}, nil
}

func (p *PostgresIndex) Close() error { return p.db.Close() }

func (p *PostgresIndex) Init(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		source_path TEXT UNIQUE,
		enrolled_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS fingerprints (
		hash BIGINT NOT NULL,
		anchor_time_idx INTEGER NOT NULL,
		recording_id BIGINT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_recording_id ON fingerprints(recording_id);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return errs.Wrap(errs.KindStoreIO, "index.Init", err)
	}
	return nil
}

func (p *PostgresIndex) Enroll(ctx context.Context, name, sourcePath string, fps []fingerprint.Fingerprint) (uint64, bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
	}
	defer tx.Rollback()

	var recordingID uint64
	replaced := false

	if sourcePath != "" {
		err := tx.QueryRowContext(ctx, `SELECT id FROM recordings WHERE source_path = $1`, sourcePath).Scan(&recordingID)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
		default:
			replaced = true
			if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE recording_id = $1`, recordingID); err != nil {
				return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE recordings SET name = $1, enrolled_at = $2 WHERE id = $3`, name, time.Now().UTC(), recordingID); err != nil {
				return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
			}
		}
	}

	if !replaced {
		var sp sql.NullString
		if sourcePath != "" {
			sp = sql.NullString{String: sourcePath, Valid: true}
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO recordings (name, source_path, enrolled_at) VALUES ($1, $2, $3) RETURNING id`,
			name, sp, time.Now().UTC(),
		).Scan(&recordingID); err != nil {
			return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
		}
	}

	const batchSize = 5000
	batch := make([][2]int64, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		args := make([]any, 0, len(batch)*3)
		values := ""
		for i, pair := range batch {
			if i > 0 {
				values += ","
			}
			n := i * 3
			values += placeholders(n+1, n+2, n+3)
			args = append(args, pair[0], pair[1], recordingID)
		}
		query := `INSERT INTO fingerprints (hash, anchor_time_idx, recording_id) VALUES ` + values
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for _, fp := range fps {
		batch = append(batch, [2]int64{toSigned(fp.Hash), int64(fp.AnchorTimeIdx)})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
			}
		}
	}
	if err := flush(); err != nil {
		return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, errs.Wrap(errs.KindStoreIO, "index.Enroll", err)
	}

	logger.Info("enrolled recording", "id", recordingID, "name", name, "fingerprints", len(fps), "replaced", replaced)
	return recordingID, replaced, nil
}

func placeholders(a, b, c int) string {
	return "($" + strconv.Itoa(a) + ", $" + strconv.Itoa(b) + ", $" + strconv.Itoa(c) + ")"
}

func (p *PostgresIndex) Lookup(ctx context.Context, hash uint64) ([]AnchorRef, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT recording_id, anchor_time_idx FROM fingerprints WHERE hash = $1`, toSigned(hash))
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

func (p *PostgresIndex) GetRecording(ctx context.Context, id uint64) (Recording, error) {
	var r Recording
	var sp sql.NullString
	err := p.db.QueryRowContext(ctx, `SELECT id, name, source_path, enrolled_at FROM recordings WHERE id = $1`, id).
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

func (p *PostgresIndex) ListRecordings(ctx context.Context) ([]RecordingSummary, error) {
	rows, err := p.db.QueryContext(ctx, `
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
