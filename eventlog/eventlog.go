/*
Package eventlog keeps the notifications of delivered transactions in a
SQLite database, so that escrow activity can be listed without replaying
the chain.

A Store is an escrowd.EventSink. It is an observer only: the application
state never depends on it.
*/
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/tendermint/tendermint/libs/common"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	height      INTEGER NOT NULL,
	tx_hash     TEXT,
	block_time  INTEGER NOT NULL,
	action      TEXT NOT NULL,
	escrow      TEXT NOT NULL,
	initializer TEXT NOT NULL,
	receiver    TEXT NOT NULL,
	amount      TEXT NOT NULL,
	tags        TEXT NOT NULL,
	UNIQUE (height, tx_hash)
);
CREATE INDEX IF NOT EXISTS events_action ON events (action, id);
CREATE INDEX IF NOT EXISTS events_escrow ON events (escrow, id);
`

// Event is a single stored notification.
type Event struct {
	ID          int64             `json:"id"`
	Height      int64             `json:"height"`
	BlockTime   int64             `json:"block_time"`
	Action      string            `json:"action"`
	Escrow      string            `json:"escrow"`
	Initializer string            `json:"initializer"`
	Receiver    string            `json:"receiver"`
	Amount      string            `json:"amount"`
	Tags        map[string]string `json:"tags"`
}

// Store is a SQLite backed event sink.
type Store struct {
	db *sql.DB
}

var _ escrowd.EventSink = (*Store)(nil)

// Open opens or creates the database at path. Use ":memory:" for a
// database that lives as long as the Store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(errors.ErrDatabase, "create schema: %s", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Emit stores the tags of a delivered transaction together with the
// height and time of its block. An event already stored for the same
// height and transaction hash is ignored, so replaying a block is safe.
// Events emitted without a transaction hash are always stored.
func (s *Store) Emit(ctx escrowd.Context, tags []common.KVPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	all := make(map[string]string, len(tags))
	for _, t := range tags {
		all[string(t.Key)] = string(t.Value)
	}
	if all["action"] == "" {
		return errors.Wrap(errors.ErrInvalidInput, "missing action tag")
	}
	raw, err := json.Marshal(all)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	height, _ := escrowd.GetHeight(ctx)
	var blockTime int64
	if t, ok := escrowd.BlockTime(ctx); ok {
		blockTime = t.UTC().Unix()
	}

	var txHash sql.NullString
	if h, ok := escrowd.TxHash(ctx); ok {
		txHash = sql.NullString{String: fmt.Sprintf("%X", h), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO events (height, tx_hash, block_time, action, escrow, initializer, receiver, amount, tags)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		height, txHash, blockTime,
		all["action"], all["escrow"], all["initializer"], all["receiver"], all["amount"],
		string(raw),
	)
	if err != nil {
		return errors.Wrapf(errors.ErrDatabase, "insert event: %s", err)
	}
	return nil
}

// List returns up to limit newest-first events with given action. An
// empty action matches every event.
func (s *Store) List(ctx context.Context, action string, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "limit must be greater than zero")
	}
	q := `SELECT id, height, block_time, action, escrow, initializer, receiver, amount, tags FROM events`
	args := []interface{}{}
	if action != "" {
		q += ` WHERE action = ?`
		args = append(args, action)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	return s.query(ctx, q, args...)
}

// History returns all events of one escrow in the order they happened.
// The escrow is given in its upper case hex form.
func (s *Store) History(ctx context.Context, escrow string) ([]Event, error) {
	return s.query(ctx, `
SELECT id, height, block_time, action, escrow, initializer, receiver, amount, tags
FROM events WHERE escrow = ? ORDER BY id ASC`, strings.ToUpper(escrow))
}

func (s *Store) query(ctx context.Context, q string, args ...interface{}) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "query events: %s", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			tags string
		)
		if err := rows.Scan(&e.ID, &e.Height, &e.BlockTime, &e.Action, &e.Escrow, &e.Initializer, &e.Receiver, &e.Amount, &tags); err != nil {
			return nil, errors.Wrapf(errors.ErrDatabase, "scan event: %s", err)
		}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidModel, "event %d tags: %s", e.ID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "iterate events: %s", err)
	}
	return events, nil
}
