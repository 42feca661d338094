package settlement

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/guard"
	"github.com/mmslot/seamless-wallet/internal/ledger"
)

const (
	testHouseID  = int64(1)
	testPlayerID = int64(42)
)

type testEnv struct {
	svc     *Service
	wallets *memWalletRepo
	wagers  *memWagerRepo
	lines   *memTxRepo
	events  *memEventRepo
	refs    *memRefRepo
	outbox  *memOutboxRepo
	audits  *memAuditRepo
	lock    *guard.MemoryUserLock
}

func newTestEnv() *testEnv {
	wallets := newMemWalletRepo(testHouseID, testPlayerID)
	wallets.wallets[testPlayerID].Balance = 1_000
	wallets.wallets[testPlayerID].OpeningBalance = 1_000

	refs := newMemRefRepo()
	refs.addMapping("1", 10, "P1", 20, rateOf(97))
	refs.addMapping("2", 11, "P1", 20, nil)

	wagers := newMemWagerRepo()
	lines := newMemTxRepo()
	events := &memEventRepo{}
	outbox := &memOutboxRepo{}
	audits := &memAuditRepo{}
	lock := guard.NewMemoryUserLock()

	walletSvc := ledger.NewPgWalletService(wallets, audits)
	engine := ledger.NewEngine(wallets, outbox, walletSvc)

	svc := NewService(Deps{
		DB:        nil,
		Runner:    passthroughRunner{},
		Locks:     lock,
		LockTTL:   10 * time.Second,
		HouseID:   testHouseID,
		Events:    events,
		Wagers:    wagers,
		Lines:     lines,
		Refs:      refs,
		Wallets:   wallets,
		Outbox:    outbox,
		Engine:    engine,
		WalletSvc: walletSvc,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testEnv{
		svc: svc, wallets: wallets, wagers: wagers, lines: lines,
		events: events, refs: refs, outbox: outbox, audits: audits, lock: lock,
	}
}

func stakeRequest() Request {
	return Request{
		UserID:      testPlayerID,
		MessageID:   "M1",
		ProductID:   20,
		RequestTime: time.Now(),
		RawPayload:  json.RawMessage(`{"MessageID":"M1"}`),
		Lines: []domain.LineItem{{
			Status:            101,
			ProductCode:       "P1",
			GameTypeCode:      "1",
			TransactionID:     "T1",
			WagerID:           "W1",
			BetAmount:         100,
			TransactionAmount: -100,
			ValidBetAmount:    100,
		}},
	}
}

func TestPlaceBet_StakeSettlesAndMovesFunds(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.PlaceBet(context.Background(), stakeRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), result.BalanceBefore)
	assert.Equal(t, int64(900), result.BalanceAfter)

	// Stake flows to the house; the pair sum is conserved.
	assert.Equal(t, int64(900), env.wallets.wallets[testPlayerID].Balance)
	assert.Equal(t, int64(100), env.wallets.wallets[testHouseID].Balance)

	// A negative transaction amount settles the wager as a loss.
	wager := env.wagers.byID["W1"]
	require.NotNil(t, wager)
	assert.Equal(t, domain.WagerLose, wager.Status)
	assert.Equal(t, testPlayerID, wager.UserID)

	require.Len(t, env.lines.lines, 1)
	line := env.lines.lines[0]
	assert.Equal(t, wager.ID, line.WagerID)
	assert.Equal(t, 97, line.Rate)
	assert.Equal(t, int64(-100), line.TransactionAmount)
	assert.Equal(t, int64(1), line.SeamlessEventID)

	// The delivery is recorded and its transfers completed.
	require.Len(t, env.events.events, 1)
	assert.Equal(t, domain.TransferCompleted, env.events.events[0].TransferStatus)

	// Audit entry carries the absolute amount and settlement references.
	require.Len(t, env.audits.entries, 1)
	entry := env.audits.entries[0]
	assert.Equal(t, testPlayerID, entry.DebitHolder)
	assert.Equal(t, testHouseID, entry.CreditHolder)
	assert.Equal(t, int64(100), entry.Amount)
	assert.Equal(t, domain.KindStake, entry.Kind)
	assert.Equal(t, "W1", entry.Meta.WagerID)
	assert.Equal(t, "T1", entry.Meta.TransactionID)
	assert.Equal(t, "M1", entry.Meta.EventID)
}

func TestRefund_OverwritesStatusAndReversesFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.PlaceBet(ctx, stakeRequest())
	require.NoError(t, err)

	refund := Request{
		UserID:      testPlayerID,
		MessageID:   "M2",
		ProductID:   20,
		RequestTime: time.Now(),
		Lines: []domain.LineItem{{
			ProductCode:       "P1",
			GameTypeCode:      "1",
			TransactionID:     "T2",
			WagerID:           "W1",
			TransactionAmount: 100,
		}},
	}
	result, err := env.svc.Refund(ctx, refund)
	require.NoError(t, err)
	assert.Equal(t, int64(900), result.BalanceBefore)
	assert.Equal(t, int64(1_000), result.BalanceAfter)

	// The refund nets the two transfers to zero.
	assert.Equal(t, int64(1_000), env.wallets.wallets[testPlayerID].Balance)
	assert.Equal(t, int64(0), env.wallets.wallets[testHouseID].Balance)

	// Same wager row, status overwritten, no duplicate created.
	require.Len(t, env.wagers.byID, 1)
	assert.Equal(t, domain.WagerRefund, env.wagers.byID["W1"].Status)

	// T2 is a new ledger line under the same wager.
	require.Len(t, env.lines.lines, 2)
	assert.Equal(t, env.lines.lines[0].WagerID, env.lines.lines[1].WagerID)

	require.Len(t, env.audits.entries, 2)
	assert.Equal(t, domain.KindRefund, env.audits.entries[1].Kind)
}

func TestPlaceBet_WinSettlesWagerAsWin(t *testing.T) {
	env := newTestEnv()

	req := stakeRequest()
	req.Lines[0].TransactionAmount = 250
	req.Lines[0].TransactionID = "T9"
	req.Lines[0].WagerID = "W9"

	result, err := env.svc.PlaceBet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1_250), result.BalanceAfter)
	assert.Equal(t, domain.WagerWin, env.wagers.byID["W9"].Status)
}

func TestPlaceBet_DuplicateTransactionNoBalanceChange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.PlaceBet(ctx, stakeRequest())
	require.NoError(t, err)

	dup := stakeRequest()
	dup.MessageID = "M2" // new delivery replaying the same transaction id
	_, err = env.svc.PlaceBet(ctx, dup)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, "DUPLICATE_TRANSACTION"))

	// First settlement's effects stand; the replay moved nothing.
	assert.Equal(t, int64(900), env.wallets.wallets[testPlayerID].Balance)
	assert.Equal(t, int64(100), env.wallets.wallets[testHouseID].Balance)
	assert.Len(t, env.lines.lines, 1)
}

func TestPlaceBet_DuplicateMessageID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.PlaceBet(ctx, stakeRequest())
	require.NoError(t, err)

	dup := stakeRequest()
	dup.Lines[0].TransactionID = "T2"
	dup.Lines[0].WagerID = "W2"
	_, err = env.svc.PlaceBet(ctx, dup)
	assert.True(t, domain.HasCode(err, "DUPLICATE_EVENT"))
}

func TestPlaceBet_LockHeldMeansNoWrites(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	ok, err := env.lock.TryAcquire(ctx, testPlayerID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = env.svc.PlaceBet(ctx, stakeRequest())
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, "LOCK_CONFLICT"))

	// Zero database work while the lock is held.
	assert.Empty(t, env.events.events)
	assert.Empty(t, env.lines.lines)
	assert.Empty(t, env.wagers.byID)
	assert.Equal(t, int64(1_000), env.wallets.wallets[testPlayerID].Balance)
}

func TestPlaceBet_LockReleasedAfterSettlement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.PlaceBet(ctx, stakeRequest())
	require.NoError(t, err)

	ok, err := env.lock.TryAcquire(ctx, testPlayerID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released on the success path")
}

func TestPlaceBet_LockReleasedAfterFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	req := stakeRequest()
	req.Lines[0].GameTypeCode = "99" // unknown game type fails the settlement
	_, err := env.svc.PlaceBet(ctx, req)
	require.Error(t, err)

	ok, err := env.lock.TryAcquire(ctx, testPlayerID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released on the failure path")
}

func TestPlaceBet_ValidationErrors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for name, mutate := range map[string]func(*Request){
		"no lines":              func(r *Request) { r.Lines = nil },
		"missing message id":    func(r *Request) { r.MessageID = "" },
		"missing member":        func(r *Request) { r.UserID = 0 },
		"missing wager id":      func(r *Request) { r.Lines[0].WagerID = "" },
		"missing transaction":   func(r *Request) { r.Lines[0].TransactionID = "" },
		"missing game type":     func(r *Request) { r.Lines[0].GameTypeCode = "" },
		"missing product code":  func(r *Request) { r.Lines[0].ProductCode = "" },
	} {
		t.Run(name, func(t *testing.T) {
			req := stakeRequest()
			mutate(&req)
			_, err := env.svc.PlaceBet(ctx, req)
			assert.True(t, domain.HasCode(err, "VALIDATION_ERROR"))
		})
	}
	assert.Empty(t, env.events.events, "validation failures must not record events")
}

func TestPlaceBet_UnknownReferencesAreRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	req := stakeRequest()
	req.Lines[0].ProductCode = "P99"
	_, err := env.svc.PlaceBet(ctx, req)
	assert.True(t, domain.HasCode(err, "UNKNOWN_PRODUCT"))
	assert.Equal(t, int64(1_000), env.wallets.wallets[testPlayerID].Balance)
}

func TestPlaceBet_WalletNotFound(t *testing.T) {
	env := newTestEnv()
	req := stakeRequest()
	req.UserID = 77 // no wallet seeded

	_, err := env.svc.PlaceBet(context.Background(), req)
	assert.True(t, domain.HasCode(err, "WALLET_NOT_FOUND"))
}

func TestPlaceBet_NullRateFallsBackToOne(t *testing.T) {
	env := newTestEnv()
	req := stakeRequest()
	req.Lines[0].GameTypeCode = "2" // mapping with absent rate

	_, err := env.svc.PlaceBet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, env.lines.lines[0].Rate)
}

func TestPlaceBet_MultiLineBatchSharesWager(t *testing.T) {
	env := newTestEnv()

	req := stakeRequest()
	req.Lines = append(req.Lines, domain.LineItem{
		ProductCode:       "P1",
		GameTypeCode:      "1",
		TransactionID:     "T2",
		WagerID:           "W1", // same wager as T1
		TransactionAmount: 300,
	})

	result, err := env.svc.PlaceBet(context.Background(), req)
	require.NoError(t, err)

	// One wager row, two ledger lines, balance reflects both transfers.
	require.Len(t, env.wagers.byID, 1)
	assert.Len(t, env.lines.lines, 2)
	assert.Equal(t, int64(1_000-100+300), result.BalanceAfter)

	// The later sighting recomputed the status from its positive amount.
	assert.Equal(t, domain.WagerWin, env.wagers.byID["W1"].Status)
}

func TestPlaceBet_OutboxDrafts(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.PlaceBet(context.Background(), stakeRequest())
	require.NoError(t, err)

	// One lines-settled draft from the settlement phase, one transfer-posted
	// draft per line from the transfer phase, one balance-refreshed draft when
	// the pending marker clears.
	require.Len(t, env.outbox.drafts, 3)
	assert.Equal(t, domain.EventLinesSettled, env.outbox.drafts[0].EventType)
	assert.Equal(t, domain.EventTransferPosted, env.outbox.drafts[1].EventType)
	assert.Equal(t, domain.EventBalanceRefreshed, env.outbox.drafts[2].EventType)
	assert.Equal(t, "42", env.outbox.drafts[0].PartitionKey)
	assert.Equal(t, "42", env.outbox.drafts[2].PartitionKey)
	assert.Contains(t, string(env.outbox.drafts[2].Payload), `"balance":900`)
}

func TestBalance(t *testing.T) {
	env := newTestEnv()

	balance, err := env.svc.Balance(context.Background(), testPlayerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), balance)

	_, err = env.svc.Balance(context.Background(), 77)
	assert.True(t, domain.HasCode(err, "WALLET_NOT_FOUND"))
}

func TestReconciler_SweepFlagsOldPendingEvents(t *testing.T) {
	events := &memEventRepo{}
	old := &domain.Event{
		UserID:         testPlayerID,
		MessageID:      "M-old",
		TransferStatus: domain.TransferPending,
	}
	require.NoError(t, events.Insert(context.Background(), nil, old))
	old.CreatedAt = time.Now().Add(-5 * time.Minute)

	rec := NewReconciler(nil, events, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	assert.NoError(t, rec.Sweep(context.Background()))
}
