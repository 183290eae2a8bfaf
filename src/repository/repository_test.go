package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"signalengine/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return gdb, mock
}

func TestStabilityRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&StabilityRepository{}).WithDB(db)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "stability_states" .+ ON CONFLICT \("symbol","timeframe"\) DO UPDATE SET "side"="excluded"."side"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(),
		model.StabilityState{Symbol: "BTCUSDT", Timeframe: "15m", Side: model.SideLong, ConsecutivePasses: 2, LastPassAt: now, UpdatedAt: now},
		model.StabilityState{Symbol: "ETHUSDT", Timeframe: "15m", Side: model.SideNeutral, UpdatedAt: now},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStabilityRepository_UpsertEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&StabilityRepository{}).WithDB(db)

	require.NoError(t, repo.Upsert(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStabilityRepository_LoadAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&StabilityRepository{}).WithDB(db)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"symbol", "timeframe", "side", "consecutive_passes", "last_pass_at", "updated_at"}).
		AddRow("BTCUSDT", "15m", "LONG", 2, now, now).
		AddRow("ETHUSDT", "15m", "NEUTRAL", 0, time.Time{}, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "stability_states" ORDER BY symbol, timeframe`)).
		WillReturnRows(rows)

	states, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, model.SideLong, states[0].Side)
	assert.Equal(t, 2, states[0].ConsecutivePasses)
	assert.Equal(t, "ETHUSDT", states[1].Symbol)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeLogRepository_CreateAndListByDate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&TradeLogRepository{}).WithDB(db)
	closedAt := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "trade_logs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	row := &model.TradeLog{
		PositionID:  "pos-1",
		Symbol:      "BTCUSDT",
		Direction:   "LONG",
		Stage:       "PROBE",
		Entry:       decimal.NewFromInt(100),
		ClosePrice:  decimal.NewFromInt(110),
		Size:        decimal.NewFromInt(10),
		CloseReason: "TP",
		PnL:         decimal.RequireFromString("0.992"),
		ClosedAt:    closedAt,
	}
	require.NoError(t, repo.Create(context.Background(), row))
	assert.EqualValues(t, 7, row.ID)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trade_logs" WHERE closed_at >= $1 AND closed_at < $2 ORDER BY closed_at ASC, id ASC`)).
		WithArgs(from, from.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "position_id", "symbol", "close_reason", "pnl", "closed_at"}).
			AddRow(7, "pos-1", "BTCUSDT", "TP", "0.992", closedAt))

	rows, err := repo.ListByDate(context.Background(), closedAt)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0.992", rows[0].PnL.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignalAuditRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&SignalAuditRepository{}).WithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "signal_audits"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), &model.SignalAudit{
		Timestamp: time.Now(),
		Symbol:    "BTCUSDT",
		Phase:     model.AuditPhaseScan,
		Side:      "LONG",
		Passed:    true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&ExceptionRepository{}).WithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "exceptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	exc := &model.Exception{Service: "signalengine", Module: "engine", Method: "RunOnce", Level: "error", Message: "boom"}
	require.NoError(t, repo.Create(context.Background(), exc))
	assert.EqualValues(t, 3, exc.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCandleRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&CandleRepository{}).WithDB(db)
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "candle_records" .+ ON CONFLICT \("symbol","timeframe","datetime"\) DO UPDATE SET .+ RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectCommit()

	candles := []model.Candle{
		{Datetime: t0.Add(3 * time.Minute), Open: decimal.NewFromInt(1), High: decimal.NewFromInt(2), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2), Volume: decimal.NewFromInt(5)},
		{Datetime: t0.Add(15 * time.Minute), Open: decimal.NewFromInt(2), High: decimal.NewFromInt(3), Low: decimal.NewFromInt(2), Close: decimal.NewFromInt(3), Volume: decimal.NewFromInt(6)},
	}
	require.NoError(t, repo.Upsert(context.Background(), "BTC/USDT", model.TimeframeM15, candles))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCandleRepository_CandlesAscending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&CandleRepository{}).WithDB(db)
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "symbol", "timeframe", "datetime", "open", "high", "low", "close", "volume"}).
		AddRow(2, "BTCUSDT", "15m", t0.Add(15*time.Minute), "2", "3", "2", "3", "6").
		AddRow(1, "BTCUSDT", "15m", t0, "1", "2", "1", "2", "5")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "candle_records" WHERE symbol = $1 AND timeframe = $2 ORDER BY datetime DESC LIMIT $3`)).
		WithArgs("BTCUSDT", "15m", 2).
		WillReturnRows(rows)

	candles, err := repo.Candles(context.Background(), "btc/usdt", model.TimeframeM15, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, t0, candles[0].Datetime)
	assert.Equal(t, "3", candles[1].Close.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCandleRepository_LatestDatetimeEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&CandleRepository{}).WithDB(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "candle_records" WHERE symbol = $1 AND timeframe = $2 ORDER BY datetime DESC LIMIT $3`)).
		WithArgs("ETHUSDT", "1h", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "datetime"}))

	_, ok, err := repo.LatestDatetime(context.Background(), "ETHUSDT", model.TimeframeH1)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewCandleRecordAlignsToBar(t *testing.T) {
	c := model.Candle{Datetime: time.Date(2024, 5, 1, 10, 7, 31, 0, time.UTC)}
	rec := model.NewCandleRecord("eth-usdt", model.TimeframeM5, c)
	assert.Equal(t, "ETHUSDT", rec.Symbol)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), rec.Datetime)
}
