package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pollguard/pkg/platform/sentinel"
	"pollguard/pkg/requestcontext"
)

// advisoryLockKey serializes appends across all connections. One writer at a
// time is what keeps the sequence gapless and the chain linear.
const advisoryLockKey = 7_4201_7305

// Schema creates the ledger table. Applied by EnsureSchema; kept here so
// integration tests and deployments share one definition.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	sequence_id        BIGINT PRIMARY KEY,
	voter_id           TEXT NOT NULL,
	voter_id_hash      TEXT NOT NULL,
	terminal_id        TEXT NOT NULL,
	polling_station_id TEXT NOT NULL,
	method             TEXT NOT NULL,
	duration_seconds   DOUBLE PRECISION NOT NULL,
	retry_count        INT NOT NULL,
	outcome            TEXT NOT NULL,
	reason             TEXT NOT NULL DEFAULT '',
	fraud_suspicious   BOOLEAN NOT NULL,
	fraud_confidence   DOUBLE PRECISION NOT NULL,
	fraud_reasons      JSONB NOT NULL DEFAULT '[]',
	recorded_at        TIMESTAMPTZ NOT NULL,
	previous_hash      TEXT NOT NULL,
	record_hash        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_records_terminal_time ON audit_records (terminal_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_records_voter ON audit_records (voter_id, sequence_id DESC);
`

// PostgresStore is the durable ledger. Appends run inside a transaction that
// holds a pg advisory lock, so concurrent writers from any number of
// orchestrator instances are serialized at the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the ledger table definition.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// Append links and inserts the record under the ledger advisory lock.
func (s *PostgresStore) Append(ctx context.Context, record AuditRecord) (int64, error) {
	if record.VoterID == "" || record.TerminalID == "" {
		return 0, fmt.Errorf("audit record requires voter and terminal IDs")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
		return 0, fmt.Errorf("acquire ledger lock: %w", err)
	}

	var headSeq int64
	var headHash string
	err = tx.QueryRowContext(ctx,
		`SELECT sequence_id, record_hash FROM audit_records ORDER BY sequence_id DESC LIMIT 1`,
	).Scan(&headSeq, &headHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read ledger head: %w", err)
	}

	record.SequenceID = headSeq + 1
	record.VoterIDHash = HashID(record.VoterID)
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}
	// timestamptz stores microseconds; hash what will round-trip.
	record.RecordedAt = record.RecordedAt.Truncate(time.Microsecond)
	record.PreviousRecordHash = headHash
	record.RecordHash = chainHash(record, headHash)

	reasons, err := json.Marshal(reasonsOrEmpty(record.Verdict.Reasons))
	if err != nil {
		return 0, fmt.Errorf("marshal verdict reasons: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_records (
			sequence_id, voter_id, voter_id_hash, terminal_id, polling_station_id,
			method, duration_seconds, retry_count, outcome, reason,
			fraud_suspicious, fraud_confidence, fraud_reasons,
			recorded_at, previous_hash, record_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		record.SequenceID,
		record.VoterID,
		record.VoterIDHash,
		record.TerminalID,
		record.PollingStationID,
		record.Method,
		record.DurationSeconds,
		record.RetryCount,
		string(record.Outcome),
		record.Reason,
		record.Verdict.IsSuspicious,
		record.Verdict.Confidence,
		reasons,
		record.RecordedAt,
		record.PreviousRecordHash,
		record.RecordHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert audit record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return record.SequenceID, nil
}

// RecentByTerminal counts records for the terminal inside the trailing window.
func (s *PostgresStore) RecentByTerminal(ctx context.Context, terminalID string, window time.Duration) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-window)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_records WHERE terminal_id = $1 AND recorded_at >= $2`,
		terminalID, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count terminal records: %w", err)
	}
	return count, nil
}

// LastByVoter returns the most recent record for the voter.
func (s *PostgresStore) LastByVoter(ctx context.Context, voterID string) (*AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE voter_id = $1 ORDER BY sequence_id DESC LIMIT 1`,
		voterID,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query last record by voter: %w", err)
	}
	return record, nil
}

// ListSince returns records recorded after the cutoff, oldest first.
func (s *PostgresStore) ListSince(ctx context.Context, since time.Time) ([]AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE recorded_at > $1 ORDER BY sequence_id ASC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query records since cutoff: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

// VerifyChain walks the stored chain oldest-first and recomputes every link.
func (s *PostgresStore) VerifyChain(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY sequence_id ASC`)
	if err != nil {
		return fmt.Errorf("query chain: %w", err)
	}
	defer rows.Close()

	previousHash := ""
	var expectedSeq int64 = 1
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("scan chain record: %w", err)
		}
		if record.SequenceID != expectedSeq {
			return fmt.Errorf("record %d out of sequence: %w", record.SequenceID, sentinel.ErrChainBroken)
		}
		if record.PreviousRecordHash != previousHash {
			return fmt.Errorf("record %d previous-hash mismatch: %w", record.SequenceID, sentinel.ErrChainBroken)
		}
		if chainHash(*record, previousHash) != record.RecordHash {
			return fmt.Errorf("record %d hash mismatch: %w", record.SequenceID, sentinel.ErrChainBroken)
		}
		previousHash = record.RecordHash
		expectedSeq++
	}
	return rows.Err()
}

const selectColumns = `
	SELECT sequence_id, voter_id, voter_id_hash, terminal_id, polling_station_id,
	       method, duration_seconds, retry_count, outcome, reason,
	       fraud_suspicious, fraud_confidence, fraud_reasons,
	       recorded_at, previous_hash, record_hash
	FROM audit_records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*AuditRecord, error) {
	var record AuditRecord
	var outcome string
	var reasonsJSON []byte

	err := row.Scan(
		&record.SequenceID,
		&record.VoterID,
		&record.VoterIDHash,
		&record.TerminalID,
		&record.PollingStationID,
		&record.Method,
		&record.DurationSeconds,
		&record.RetryCount,
		&outcome,
		&record.Reason,
		&record.Verdict.IsSuspicious,
		&record.Verdict.Confidence,
		&reasonsJSON,
		&record.RecordedAt,
		&record.PreviousRecordHash,
		&record.RecordHash,
	)
	if err != nil {
		return nil, err
	}

	record.Outcome = Outcome(outcome)
	if err := json.Unmarshal(reasonsJSON, &record.Verdict.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal verdict reasons: %w", err)
	}
	if len(record.Verdict.Reasons) == 0 {
		record.Verdict.Reasons = nil
	}
	return &record, nil
}

func reasonsOrEmpty(reasons []string) []string {
	if reasons == nil {
		return []string{}
	}
	return reasons
}
