package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrClosed is returned by Journal methods when the journal has been closed.
	ErrClosed = errors.New("journal is closed")
)

const (
	memory = ":memory:"
)

// Journal is an append-only log of opaque frames backed by SQLite.
type Journal struct {
	cfg *Config
	db  *sql.DB
}

// New creates a new Journal with the provided configuration functions.
//
// Default configuration:
//   - URI: ":memory:" (in-memory database)
//   - Limit: 1000
//
// Returns an error if the SQLite database cannot be opened or initialized.
func New(configFuncs ...ConfigFunc) (*Journal, error) {
	cfg := &Config{}
	cfg.URI(memory)
	cfg.Limit(1000)
	for _, cf := range configFuncs {
		cf(cfg)
	}

	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if err := setup(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}

	journal := Journal{
		cfg: cfg,
		db:  db,
	}

	return &journal, nil
}

// Append stores a copy of the frame and returns its sequence number. Sequence numbers grow
// monotonically and are never reused, even after [Journal.Delete].
//
// Returns [ErrClosed] if the journal has been closed.
func (j *Journal) Append(data []byte) (Seq, error) {
	if data == nil {
		data = []byte{}
	}

	var seq Seq
	err := j.db.QueryRow(
		`
		insert into frame (
			data,
			size,
			appended_at
		) values (
			:data,
			:size,
			:appended_at
		)
		returning seq
		`,
		sql.Named("data", data),
		sql.Named("size", len(data)),
		sql.Named("appended_at", toTimestamp(time.Now())),
	).Scan(&seq)
	if err != nil {
		return 0, wrap(err)
	}

	return seq, nil
}

// Range returns up to limit records with sequence numbers greater than after, in order. A limit
// below 1 means the configured [Config.Limit].
//
// Returns an empty slice if there are no such records.
// Returns [ErrClosed] if the journal has been closed.
func (j *Journal) Range(after Seq, limit int) ([]Record, error) {
	if limit < 1 {
		limit = j.cfg.limit
	}

	rows, err := j.db.Query(
		`
		select seq, data, appended_at from frame
		where seq > :after
		order by seq asc
		limit :limit
		`,
		sql.Named("after", after),
		sql.Named("limit", limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", wrap(err))
	}
	defer rows.Close()

	records := make([]Record, 0, min(limit, 64))

	for rows.Next() {
		var (
			r          Record
			appendedAt int64
		)
		if err := rows.Scan(&r.Seq, &r.Data, &appendedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r.AppendedAt = fromTimestamp(appendedAt)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return records, nil
}

// All returns a sequence of every record after the provided sequence number. Records are read in
// pages of [Config.Limit]. The sequence stops after yielding the first error.
func (j *Journal) All(after Seq) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			records, err := j.Range(after, 0)
			if err != nil {
				yield(Record{}, err)
				return
			}
			for _, r := range records {
				if !yield(r, nil) {
					return
				}
				after = r.Seq
			}
			if len(records) < j.cfg.limit {
				return
			}
		}
	}
}

// Delete permanently removes all records up to and including the provided sequence number.
func (j *Journal) Delete(upTo Seq) error {
	_, err := j.db.Exec(
		`
		delete from frame
		where seq <= :up_to
		`,
		sql.Named("up_to", upTo),
	)
	return wrap(err)
}

// Stats returns current journal statistics.
func (j *Journal) Stats() (*Stats, error) {
	var stats Stats
	err := j.db.QueryRow(
		`
		select
			coalesce(count(*), 0) as frames,
			coalesce(sum(size), 0) as bytes,
			coalesce(min(seq), 0) as first,
			coalesce(max(seq), 0) as last
		from
			frame
		`,
	).Scan(
		&stats.Frames,
		&stats.Bytes,
		&stats.First,
		&stats.Last,
	)
	if err != nil {
		return nil, wrap(err)
	}

	return &stats, nil
}

// Close closes the underlying SQLite database.
//
// After closing, all methods on Journal will return [ErrClosed].
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record is a stored frame.
type Record struct {
	// Seq is the sequence number of the frame.
	Seq Seq
	// Data is the frame content.
	Data []byte
	// AppendedAt is the time when the frame was appended.
	AppendedAt time.Time
}

type Seq = int64

// Stats represents statistics about the journal.
type Stats struct {
	// Frames is the number of stored frames.
	Frames int
	// Bytes is the total size of stored frames.
	Bytes int64
	// First is the smallest stored sequence number, or 0 if the journal is empty.
	First Seq
	// Last is the largest stored sequence number, or 0 if the journal is empty.
	Last Seq
}

func open(cfg *Config) (*sql.DB, error) {
	uri := *cfg.uri

	params := url.Values{}
	params.Add("_txlock", "immediate")
	params.Add("_timeout", "5000") // 5s
	if uri.Opaque == memory {
		// Every in-memory journal gets its own shared-cache database.
		uri.Opaque = randomName()
		params.Add("mode", "memory")
		params.Add("cache", "shared")
	} else {
		params.Add("_journal", "wal")
		params.Add("_sync", "normal")
	}
	for k, v := range cfg.uri.Query() {
		if len(v) != 0 {
			params.Set(k, v[0])
		}
	}

	uri.RawQuery = params.Encode()

	db, err := sql.Open("sqlite3", uri.String())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

func setup(db *sql.DB) error {
	if _, err := db.Exec(
		`
		create table if not exists frame (
			seq         integer primary key autoincrement,
			data        blob not null,
			size        int not null,
			appended_at int not null
		) strict
		`,
	); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return nil
}

func wrap(err error) error {
	if err != nil && err.Error() == "sql: database is closed" {
		return ErrClosed
	}
	return err
}

func randomName() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const n = 10
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[rand.IntN(len(charset))]
	}
	return string(b)
}

func toTimestamp(time time.Time) int64 {
	return time.UnixNano()
}

func fromTimestamp(timestamp int64) time.Time {
	return time.Unix(0, timestamp)
}
