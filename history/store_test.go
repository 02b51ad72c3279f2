package history

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"candymint/mint"
)

func init() {
	log.SetOutput(io.Discard)
}

func dryRunStore(t *testing.T) (*Store, *gorm.DB) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=candymint dbname=candymint sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return NewStore(db), db
}

func TestFromAttempt(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	id := uuid.New()
	at := time.Unix(1_700_000_000, 0)

	t.Run("Success", func(t *testing.T) {
		row := fromAttempt(mint.Attempt{
			SessionID:      id,
			Wallet:         wallet,
			Mint:           wallet,
			Kind:           mint.KindSuccess,
			Signature:      solana.Signature{1},
			Price:          1_000_000_000,
			ItemsRemaining: 4,
			At:             at,
		})

		assert.Equal(t, id.String(), row.SessionID)
		assert.Equal(t, wallet.String(), row.Wallet)
		assert.Equal(t, "success", row.Kind)
		assert.Equal(t, solana.Signature{1}.String(), row.Signature)
		assert.Empty(t, row.SetupSignature)
		assert.Equal(t, at, row.AttemptedAt)
	})

	t.Run("Refused before sending", func(t *testing.T) {
		row := fromAttempt(mint.Attempt{
			SessionID: id,
			Wallet:    wallet,
			Kind:      mint.KindFailed,
			Reason:    mint.ReasonSoldOut,
		})

		assert.Empty(t, row.Signature)
		assert.Empty(t, row.Mint)
		assert.Equal(t, "sold_out", row.Reason)
	})
}

func TestRecord(t *testing.T) {
	store, db := dryRunStore(t)

	err := store.Record(context.Background(), mint.Attempt{
		SessionID: uuid.New(),
		Wallet:    solana.NewWallet().PublicKey(),
		Kind:      mint.KindIndeterminate,
		Reason:    mint.ReasonTimeout,
	})
	assert.NoError(t, err)

	stmt := db.Session(&gorm.Session{DryRun: true}).Create(&MintAttempt{Wallet: "w"}).Statement
	assert.Contains(t, stmt.SQL.String(), `INSERT INTO "mint_attempts"`)
}

func TestListByWallet(t *testing.T) {
	_, db := dryRunStore(t)

	var rows []MintAttempt
	stmt := db.Where("wallet = ?", "w").Order("attempted_at DESC").Limit(MaxLimit).Find(&rows).Statement
	assert.Contains(t, stmt.SQL.String(), `"mint_attempts"`)
	assert.Contains(t, stmt.SQL.String(), "ORDER BY attempted_at DESC")

	store, _ := dryRunStore(t)
	_, err := store.ListByWallet(context.Background(), "w", 1000)
	assert.NoError(t, err)
}

func TestNotConfigured(t *testing.T) {
	var store *Store
	assert.Error(t, store.Record(context.Background(), mint.Attempt{}))
	_, err := store.ListByWallet(context.Background(), "w", 1)
	assert.Error(t, err)
}
