package jobq

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

// ExecerContext is satisfied by *sql.DB and *sql.Tx, letting producers
// enqueue jobs inside their own business transaction.
type ExecerContext interface {
	ExecContext(ctx context.Context, s string, args ...any) (sql.Result, error)
}

// PgBackend implements both the Queue and Store contracts on a single
// PostgreSQL table. Claims are atomic across processes: Dequeue takes
// the winning row with FOR UPDATE SKIP LOCKED in one statement, so
// concurrent pools never hand the same job to two workers. Across
// crashes the contract is still at-least-once; handlers should be
// idempotent.
type PgBackend struct {
	db *sql.DB
}

var (
	_ Queue = (*PgBackend)(nil)
	_ Store = (*PgBackend)(nil)
)

func NewPgBackend(db *sql.DB) *PgBackend {
	return &PgBackend{db: db}
}

// OpenPg connects with the pgx stdlib driver and verifies the connection.
func OpenPg(ctx context.Context, dsn string) (*PgBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "open")
	}
	err = db.PingContext(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "ping")
	}
	return NewPgBackend(db), nil
}

// Migrate creates the job table and dequeue index if they do not exist.
func (b *PgBackend) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobq_job (
	id TEXT PRIMARY KEY,
	queue TEXT NOT NULL,
	type TEXT NOT NULL,
	args BYTEA,
	priority INT NOT NULL,
	status TEXT NOT NULL,
	attempt INT NOT NULL,
	max_retries INT NOT NULL,
	execute_at TIMESTAMPTZ,
	result BYTEA,
	last_error TEXT,
	seq BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS jobq_job_dequeue_idx
ON jobq_job (queue, status, priority DESC, seq)`,
		`CREATE INDEX IF NOT EXISTS jobq_job_promote_idx
ON jobq_job (queue, status, execute_at)`,
	}
	for _, stmt := range statements {
		_, err := b.db.ExecContext(ctx, stmt)
		if err != nil {
			return errors.WithMessage(err, "migrate")
		}
	}
	return nil
}

func (b *PgBackend) Close() error {
	return b.db.Close()
}

const jobColumns = `id, queue, type, args, priority, status, attempt, max_retries, execute_at, result, last_error, created_at, updated_at`

// Enqueue makes the job visible (or re-visible after a retry) by
// upserting its row. Visibility on PostgreSQL is just the status and
// execute_at columns, so Save and Enqueue share the same write.
func (b *PgBackend) Enqueue(ctx context.Context, job *Job) error {
	err := validateJob(job)
	if err != nil {
		return err
	}
	return saveJob(ctx, b.db, job)
}

// Dequeue claims the highest-priority pending job. The UPDATE flips the
// row to running in the same statement that locks it, so the job is
// never visible to another worker between dequeue and claim.
func (b *PgBackend) Dequeue(ctx context.Context, queue string) (*Job, error) {
	query := fmt.Sprintf(`
UPDATE jobq_job SET status = $1, updated_at = $2
WHERE id = (
	SELECT id FROM jobq_job
	WHERE queue = $3 AND status = $4
	ORDER BY priority DESC, seq
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING %s`, jobColumns)
	row := b.db.QueryRowContext(ctx, query, StatusRunning, timeNow(), queue, StatusPending)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrEmptyQueue
	}
	if err != nil {
		return nil, errors.WithMessage(err, "dequeue")
	}
	return job, nil
}

func (b *PgBackend) Size(ctx context.Context, queue string) (int, error) {
	var count int
	query := `SELECT count(*) FROM jobq_job WHERE queue = $1 AND status = $2`
	err := b.db.QueryRowContext(ctx, query, queue, StatusPending).Scan(&count)
	if err != nil {
		return 0, errors.WithMessage(err, "count pending")
	}
	return count, nil
}

func (b *PgBackend) PromoteDue(ctx context.Context, queue string, now time.Time) (int, error) {
	query := `
UPDATE jobq_job SET status = $1, updated_at = $2
WHERE queue = $3 AND status = $4 AND execute_at <= $5`
	res, err := b.db.ExecContext(ctx, query, StatusPending, timeNow(), queue, StatusScheduled, now)
	if err != nil {
		return 0, errors.WithMessage(err, "promote due")
	}
	promoted, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithMessage(err, "rows affected")
	}
	return int(promoted), nil
}

func (b *PgBackend) Find(ctx context.Context, id string) (*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobq_job WHERE id = $1`, jobColumns)
	row := b.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "find")
	}
	return job, nil
}

func (b *PgBackend) Save(ctx context.Context, job *Job) error {
	return saveJob(ctx, b.db, job)
}

func saveJob(ctx context.Context, e ExecerContext, job *Job) error {
	query := `
INSERT INTO jobq_job (id, queue, type, args, priority, status, attempt, max_retries, execute_at, result, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	attempt = EXCLUDED.attempt,
	max_retries = EXCLUDED.max_retries,
	execute_at = EXCLUDED.execute_at,
	result = EXCLUDED.result,
	last_error = EXCLUDED.last_error,
	updated_at = EXCLUDED.updated_at`
	_, err := e.ExecContext(
		ctx,
		query,
		job.Id,
		job.Queue,
		job.Type,
		job.Args,
		job.Priority,
		job.Status,
		job.Attempt,
		job.MaxRetries,
		job.ExecuteAt,
		job.Result,
		job.LastError,
		job.CreatedAt,
		timeNow(),
	)
	if err != nil {
		return errors.WithMessage(err, "upsert job")
	}
	return nil
}

// EnqueueTx inserts new jobs through the caller's executor, typically a
// *sql.Tx, so enqueueing can commit or roll back with the surrounding
// business transaction. Duplicate ids return ErrJobAlreadyExist.
func EnqueueTx(ctx context.Context, e ExecerContext, list ...EnqueueRequest) ([]string, error) {
	jobs, err := requestsToJobs(list)
	if err != nil {
		return nil, err
	}

	err = bulkInsert(ctx, e, jobs)
	if err == ErrJobAlreadyExist {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("bulk insert: %w", err)
	}

	ids := make([]string, 0, len(jobs))
	for i := range jobs {
		ids = append(ids, jobs[i].Id)
	}
	return ids, nil
}

func bulkInsert(ctx context.Context, e ExecerContext, jobs []Job) error {
	const cols = 13
	valueStrings := make([]string, 0, len(jobs))
	valueArgs := make([]any, 0, len(jobs)*cols)
	placeholderNum := 0
	for i := range jobs {
		job := &jobs[i]
		placeholders := make([]string, 0, cols)
		for k := 0; k < cols; k++ {
			placeholderNum++
			placeholders = append(placeholders, fmt.Sprintf("$%d", placeholderNum))
		}
		valueStrings = append(valueStrings, fmt.Sprintf("(%s)", strings.Join(placeholders, ",")))
		valueArgs = append(
			valueArgs,
			job.Id,
			job.Queue,
			job.Type,
			job.Args,
			job.Priority,
			job.Status,
			job.Attempt,
			job.MaxRetries,
			job.ExecuteAt,
			job.Result,
			job.LastError,
			job.CreatedAt,
			job.UpdatedAt,
		)
	}
	query := fmt.Sprintf(
		"INSERT INTO jobq_job (id, queue, type, args, priority, status, attempt, max_retries, execute_at, result, last_error, created_at, updated_at) VALUES %s",
		strings.Join(valueStrings, ","),
	)
	_, err := e.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { //unique_violation
			return ErrJobAlreadyExist
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	job := Job{}
	var (
		priority  int32
		status    string
		executeAt sql.NullTime
		lastError sql.NullString
	)
	err := row.Scan(
		&job.Id,
		&job.Queue,
		&job.Type,
		&job.Args,
		&priority,
		&status,
		&job.Attempt,
		&job.MaxRetries,
		&executeAt,
		&job.Result,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Priority = Priority(priority)
	job.Status = Status(status)
	if executeAt.Valid {
		at := executeAt.Time
		job.ExecuteAt = &at
	}
	if lastError.Valid {
		msg := lastError.String
		job.LastError = &msg
	}
	return &job, nil
}
