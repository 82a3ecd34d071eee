package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeResults struct {
	execs int
	err   error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	r.execs++
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

type fakeDB struct {
	execSQL []string
	batch   *pgx.Batch
	results *fakeResults
}

func (d *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execSQL = append(d.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (d *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	d.batch = b
	return d.results
}

func TestPostgresSink_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := NewPostgresSink(db).EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(db.execSQL) != 2 {
		t.Fatalf("executed %d statements, want 2", len(db.execSQL))
	}
	if !strings.Contains(db.execSQL[0], "CREATE TABLE IF NOT EXISTS protocol_events") {
		t.Errorf("first statement = %q", db.execSQL[0])
	}
}

func TestPostgresSink_Write(t *testing.T) {
	db := &fakeDB{results: &fakeResults{}}
	sink := NewPostgresSink(db)

	now := time.Now()
	entries := []Entry{
		{ConnID: "a", ReceivedAt: now, Command: "PING", Raw: "PING"},
		{ConnID: "a", ReceivedAt: now, Command: "OK", Raw: "OK you_are_ready"},
	}
	if err := sink.Write(context.Background(), entries); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if db.batch.Len() != 2 {
		t.Errorf("batch has %d queries, want 2", db.batch.Len())
	}
	q := db.batch.QueuedQueries[1]
	if !strings.Contains(q.SQL, "INSERT INTO protocol_events") {
		t.Errorf("SQL = %q", q.SQL)
	}
	if len(q.Arguments) != 4 || q.Arguments[3] != "OK you_are_ready" {
		t.Errorf("Arguments = %v", q.Arguments)
	}
	if db.results.execs != 2 {
		t.Errorf("Exec called %d times, want 2", db.results.execs)
	}
}

func TestPostgresSink_WriteError(t *testing.T) {
	dbErr := errors.New("unique violation")
	db := &fakeDB{results: &fakeResults{err: dbErr}}

	err := NewPostgresSink(db).Write(context.Background(), []Entry{{Command: "PING"}})
	if !errors.Is(err, dbErr) {
		t.Errorf("Write() error = %v, want wrapped db error", err)
	}
}

func TestPostgresSink_WriteEmpty(t *testing.T) {
	db := &fakeDB{}
	if err := NewPostgresSink(db).Write(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if db.batch != nil {
		t.Error("empty write sent a batch")
	}
}
