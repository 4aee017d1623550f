package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/yourorg/symbol-directory/internal/model"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSymbolRepo(t *testing.T) (*SymbolRepository, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return NewSymbolRepository(db, zap.NewNop()), mock
}

func TestGetWorklist_EmptyWhenUnset(t *testing.T) {
	repo, mock := newSymbolRepo(t)
	mock.ExpectGet("dtn:ingestion:symbols").RedisNil()

	records, err := repo.GetWorklist(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorklistRoundTrip(t *testing.T) {
	repo, mock := newSymbolRepo(t)
	records := []model.SymbolRecord{
		{Symbol: "AAPL", Exchange: "NYSE", Description: "Apple Inc", SecurityType: "STOCK"},
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)

	mock.ExpectSet("dtn:ingestion:symbols", data, 0).SetVal("OK")
	require.NoError(t, repo.SetWorklist(context.Background(), records))

	mock.ExpectGet("dtn:ingestion:symbols").SetVal(string(data))
	got, err := repo.GetWorklist(context.Background())
	require.NoError(t, err)
	require.Equal(t, records, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetWorklist_NilBecomesEmptySequence(t *testing.T) {
	repo, mock := newSymbolRepo(t)

	mock.ExpectSet("dtn:ingestion:symbols", []byte("[]"), 0).SetVal("OK")
	require.NoError(t, repo.SetWorklist(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfig_DefaultsWhenUnset(t *testing.T) {
	repo, mock := newSymbolRepo(t)
	mock.ExpectGet("dtn:system:config").RedisNil()

	cfg, err := repo.GetConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.DefaultSystemConfig(), cfg)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigRoundTrip_NoMergeWithDefaults(t *testing.T) {
	repo, mock := newSymbolRepo(t)
	cfg := model.SystemConfig{
		ScheduleHour:      5,
		ScheduleMinute:    0,
		TimeframesToFetch: map[string]int{"1d": 30},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	mock.ExpectSet("dtn:system:config", data, 0).SetVal("OK")
	require.NoError(t, repo.SetConfig(context.Background(), cfg))

	mock.ExpectGet("dtn:system:config").SetVal(string(data))
	got, err := repo.GetConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, cfg, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShardKeys_Filtering(t *testing.T) {
	allKeys := []string{
		"symbols:NYSE:STOCK",
		"symbols:NYSE:ETF",
		"symbols:CME:FUTURES",
	}

	tests := []struct {
		name         string
		exchange     string
		securityType string
		want         []string
	}{
		{"no filters", "", "", allKeys},
		{"exchange filter", "NYSE", "", []string{"symbols:NYSE:STOCK", "symbols:NYSE:ETF"}},
		{"exchange filter is case-insensitive", "nyse", "", []string{"symbols:NYSE:STOCK", "symbols:NYSE:ETF"}},
		{"security type filter", "", "futures", []string{"symbols:CME:FUTURES"}},
		{"both filters", "CME", "FUTURES", []string{"symbols:CME:FUTURES"}},
		{"no match", "EUREX", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newSymbolRepo(t)
			mock.ExpectKeys("symbols:*:*").SetVal(allKeys)

			got, err := repo.ShardKeys(context.Background(), tt.exchange, tt.securityType)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestShardKeys_IgnoresMalformedKeys(t *testing.T) {
	repo, mock := newSymbolRepo(t)
	mock.ExpectKeys("symbols:*:*").SetVal([]string{"symbols:NYSE:STOCK", "symbols:broken"})

	got, err := repo.ShardKeys(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, []string{"symbols:NYSE:STOCK"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadShard_EmptyWhenMissing(t *testing.T) {
	repo, mock := newSymbolRepo(t)
	mock.ExpectGet("symbols:NYSE:STOCK").RedisNil()

	records, err := repo.LoadShard(context.Background(), "symbols:NYSE:STOCK")
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreShard_KeyLayout(t *testing.T) {
	repo, mock := newSymbolRepo(t)
	records := []model.SymbolRecord{
		{Symbol: "CLZ4", Exchange: "CME", Description: "Crude Oil Futures", SecurityType: "FUTURES"},
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)

	mock.ExpectSet("symbols:CME:FUTURES", data, 0).SetVal("OK")
	require.NoError(t, repo.StoreShard(context.Background(), "CME", "FUTURES", records))
	require.NoError(t, mock.ExpectationsWereMet())
}
