package writer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickstream/tick-ingestor/internal/model"
)

// fakeTx records calls; unimplemented pgx.Tx methods panic via the nil embed.
type fakeTx struct {
	pgx.Tx

	execErr   error
	commitErr error
	affected  int64 // -1 = len(args)/4

	sql        string
	args       []any
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.sql = sql
	tx.args = args
	if tx.execErr != nil {
		return pgconn.CommandTag{}, tx.execErr
	}
	n := tx.affected
	if n < 0 {
		n = int64(len(args) / len(Columns))
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", n)), nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type fakeDB struct {
	tx       *fakeTx
	beginErr error
	begins   int
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	db.begins++
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	return db.tx, nil
}

func testRecords(n int) []model.PriceRecord {
	records := make([]model.PriceRecord, n)
	for i := range records {
		records[i] = model.NewPriceRecord(
			1700000000+int64(i),
			"BTC/USD",
			decimal.RequireFromString("65000.5"),
			decimal.NewNullDecimal(decimal.NewFromInt(1234)),
		)
	}
	return records
}

func TestPriceWriter_Write(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{affected: -1}}
	w := NewPriceWriter(DefaultWriterConfig(), db, nil)

	records := testRecords(3)
	records[2].DayVolume = decimal.NullDecimal{}

	require.NoError(t, w.Write(context.Background(), records))

	tx := db.tx
	assert.Equal(t, 1, db.begins)
	assert.True(t, tx.committed, "transaction should be committed")
	assert.False(t, tx.rolledBack, "committed transaction should not be rolled back")

	wantSQL := `INSERT INTO "crypto_ws_table" ("time", "symbol", "price", "day_volume") VALUES ($1, $2, $3, $4), ($5, $6, $7, $8), ($9, $10, $11, $12)`
	assert.Equal(t, wantSQL, tx.sql)
	require.Len(t, tx.args, 12)

	ts, ok := tx.args[0].(time.Time)
	require.True(t, ok, "time column should bind a time.Time")
	assert.True(t, ts.Equal(time.Unix(1700000000, 0)))
	assert.Equal(t, "BTC/USD", tx.args[1])
	assert.Equal(t, 65000.5, tx.args[2])
	assert.Equal(t, 1234.0, tx.args[3])
	assert.Nil(t, tx.args[11], "absent volume binds NULL")

	assert.Equal(t, WriterMetrics{Inserts: 3, Flushes: 1}, w.Stats())
}

func TestPriceWriter_WriteFailures(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name         string
		db           *fakeDB
		wantRollback bool
	}{
		{
			name: "begin fails",
			db:   &fakeDB{beginErr: boom, tx: &fakeTx{affected: -1}},
		},
		{
			name:         "exec fails",
			db:           &fakeDB{tx: &fakeTx{execErr: boom, affected: -1}},
			wantRollback: true,
		},
		{
			name:         "commit fails",
			db:           &fakeDB{tx: &fakeTx{commitErr: boom, affected: -1}},
			wantRollback: true,
		},
		{
			name:         "short insert",
			db:           &fakeDB{tx: &fakeTx{affected: 1}},
			wantRollback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewPriceWriter(DefaultWriterConfig(), tt.db, nil)

			err := w.Write(context.Background(), testRecords(3))
			require.ErrorIs(t, err, ErrPersistence)
			assert.False(t, tt.db.tx.committed, "transaction should not be committed")
			assert.Equal(t, tt.wantRollback, tt.db.tx.rolledBack)
			assert.Equal(t, WriterMetrics{Errors: 1}, w.Stats(), "nothing committed")
		})
	}
}

func TestPriceWriter_WriteEmpty(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{affected: -1}}
	w := NewPriceWriter(DefaultWriterConfig(), db, nil)

	assert.ErrorIs(t, w.Write(context.Background(), nil), ErrEmptyBatch)
	assert.Zero(t, db.begins)
}

func TestPriceWriter_NoDatabase(t *testing.T) {
	w := NewPriceWriter(DefaultWriterConfig(), nil, nil)

	err := w.Write(context.Background(), testRecords(1))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestBuildInsert_SchemaQualified(t *testing.T) {
	sql, args := buildInsert("market.prices", testRecords(1))

	assert.Equal(t, `INSERT INTO "market"."prices" ("time", "symbol", "price", "day_volume") VALUES ($1, $2, $3, $4)`, sql)
	assert.Len(t, args, 4)
}

func TestDefaultWriterConfig(t *testing.T) {
	cfg := DefaultWriterConfig()

	assert.Equal(t, "crypto_ws_table", cfg.Table)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}
