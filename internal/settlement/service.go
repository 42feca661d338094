package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/guard"
	"github.com/mmslot/seamless-wallet/internal/ledger"
	"github.com/mmslot/seamless-wallet/internal/repository"
	"github.com/mmslot/seamless-wallet/internal/retry"
)

// lineChunkSize caps how many ledger lines go into a single INSERT, bounding
// statement payload size and lock duration under concurrent settlements.
const lineChunkSize = 50

// Request is one parsed webhook delivery handed in by the provider layer.
type Request struct {
	UserID      int64
	MessageID   string
	ProductID   int64
	RequestTime time.Time
	RawPayload  json.RawMessage
	Lines       []domain.LineItem
}

// Result reports the player's balance around the settled batch.
type Result struct {
	BalanceBefore int64 `json:"balance_before"`
	BalanceAfter  int64 `json:"balance_after"`
}

// Service runs the settlement flow: per-user mutex, event recording, wager
// and line persistence, then wallet transfers. Settlement commits first and
// transfers follow in their own transactions (shorter lock and transaction
// spans under contention); an event whose transfers never finish keeps its
// pending marker for reconciliation.
type Service struct {
	db        repository.DBTX // pool handle for reads outside a transaction
	runner    retry.TxRunner
	locks     guard.UserLock
	lockTTL   time.Duration
	houseID   int64
	events    repository.EventRepository
	wagers    repository.WagerRepository
	lines     repository.TransactionRepository
	refs      repository.ReferenceRepository
	wallets   repository.WalletRepository
	outbox    repository.OutboxRepository
	engine    *ledger.Engine
	walletSvc ledger.WalletService
	logger    *slog.Logger

	settlePolicy   retry.Policy
	transferPolicy retry.Policy
}

// Deps bundles the service's collaborators.
type Deps struct {
	DB        repository.DBTX
	Runner    retry.TxRunner
	Locks     guard.UserLock
	LockTTL   time.Duration
	HouseID   int64
	Events    repository.EventRepository
	Wagers    repository.WagerRepository
	Lines     repository.TransactionRepository
	Refs      repository.ReferenceRepository
	Wallets   repository.WalletRepository
	Outbox    repository.OutboxRepository
	Engine    *ledger.Engine
	WalletSvc ledger.WalletService
	Logger    *slog.Logger
}

// NewService creates a settlement service. The settlement phase backs off
// exponentially under contention; the transfer phase retries on a fixed
// one-second delay.
func NewService(d Deps) *Service {
	return &Service{
		db:        d.DB,
		runner:    d.Runner,
		locks:     d.Locks,
		lockTTL:   d.LockTTL,
		houseID:   d.HouseID,
		events:    d.Events,
		wagers:    d.Wagers,
		lines:     d.Lines,
		refs:      d.Refs,
		wallets:   d.Wallets,
		outbox:    d.Outbox,
		engine:    d.Engine,
		walletSvc: d.WalletSvc,
		logger:    d.Logger,

		settlePolicy:   retry.Policy{MaxAttempts: 5, Backoff: retry.ExponentialBackoff(time.Second)},
		transferPolicy: retry.Policy{MaxAttempts: 5, Backoff: retry.FixedBackoff(time.Second)},
	}
}

// PlaceBet settles a batch of betting transactions against the user's wallet.
func (s *Service) PlaceBet(ctx context.Context, req Request) (*Result, error) {
	return s.settle(ctx, req, false)
}

// Refund settles a refund batch: wagers flip to refund status and funds move
// back toward the player.
func (s *Service) Refund(ctx context.Context, req Request) (*Result, error) {
	return s.settle(ctx, req, true)
}

// Balance returns the user's current cached wallet balance.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	wallet, err := s.wallets.FindByHolder(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, domain.ErrWalletNotFound(userID)
	}
	return wallet.Balance, nil
}

// transferJob pairs a persisted line with the provider references its wallet
// transfer must carry.
type transferJob struct {
	line domain.TransactionLine
	meta domain.TransferMeta
	kind domain.TransferKind
}

func (s *Service) settle(ctx context.Context, req Request, isRefund bool) (*Result, error) {
	acquired, err := s.locks.TryAcquire(ctx, req.UserID, s.lockTTL)
	if err != nil {
		return nil, domain.ErrInternal("acquire user lock", err)
	}
	if !acquired {
		return nil, domain.ErrLockConflict()
	}
	// Released on every exit path below; the TTL only covers a crash.
	defer func() {
		if err := s.locks.Release(ctx, req.UserID); err != nil {
			s.logger.Error("release user lock", "user_id", req.UserID, "error", err)
		}
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.FindByHolder(ctx, s.db, req.UserID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound(req.UserID)
	}
	balanceBefore := wallet.Balance

	event := &domain.Event{
		UserID:         req.UserID,
		MessageID:      req.MessageID,
		ProductID:      req.ProductID,
		RequestTime:    req.RequestTime,
		RawPayload:     req.RawPayload,
		TransferStatus: domain.TransferPending,
	}

	// Phase 1: event + wagers + lines, one transaction, retried whole on
	// serialization conflicts.
	var jobs []transferJob
	err = s.runner.InTx(ctx, s.settlePolicy, func(ctx context.Context, db repository.DBTX) error {
		jobs = jobs[:0]
		if err := s.events.Insert(ctx, db, event); err != nil {
			return err
		}

		resolver := NewResolver(s.refs)
		for start := 0; start < len(req.Lines); start += lineChunkSize {
			end := start + lineChunkSize
			if end > len(req.Lines) {
				end = len(req.Lines)
			}
			chunkJobs, err := s.settleChunk(ctx, db, resolver, event, req.Lines[start:end], isRefund)
			if err != nil {
				return err
			}
			jobs = append(jobs, chunkJobs...)
		}

		return s.outbox.Insert(ctx, db, domain.NewLinesSettledEvent(event, len(jobs)))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("settlement committed",
		"message_id", req.MessageID,
		"user_id", req.UserID,
		"lines", len(jobs),
		"refund", isRefund,
	)

	// Phase 2: one retried transaction per wallet transfer. On failure the
	// event keeps its pending marker so reconciliation can finish the job.
	for _, job := range jobs {
		job := job
		err := s.runner.InTx(ctx, s.transferPolicy, func(ctx context.Context, db repository.DBTX) error {
			return s.engine.Transfer(ctx, db, s.houseID, req.UserID, job.kind, job.line.TransactionAmount, job.line.Rate, job.meta)
		})
		if err != nil {
			s.logger.Error("wallet transfer failed, event left pending",
				"message_id", req.MessageID,
				"transaction_id", job.line.SeamlessTransactionID,
				"error", err,
			)
			return nil, err
		}
	}

	// Phase 3: clear the pending marker and refresh the cached balance.
	var balanceAfter int64
	err = s.runner.InTx(ctx, retry.DefaultPolicy(), func(ctx context.Context, db repository.DBTX) error {
		if err := s.events.SetTransferStatus(ctx, db, event.ID, domain.TransferCompleted); err != nil {
			return err
		}
		balanceAfter, err = s.walletSvc.RefreshBalance(ctx, db, req.UserID)
		if err != nil {
			return err
		}
		return s.outbox.Insert(ctx, db, domain.NewBalanceRefreshedEvent(req.UserID, balanceAfter))
	})
	if err != nil {
		return nil, err
	}

	return &Result{BalanceBefore: balanceBefore, BalanceAfter: balanceAfter}, nil
}

// settleChunk resolves, settles and bulk-inserts one chunk of lines inside
// the settlement transaction.
func (s *Service) settleChunk(ctx context.Context, db repository.DBTX, resolver *Resolver, event *domain.Event, chunk []domain.LineItem, isRefund bool) ([]transferJob, error) {
	batch := make([]domain.TransactionLine, 0, len(chunk))
	jobs := make([]transferJob, 0, len(chunk))

	for _, item := range chunk {
		res, err := resolver.Resolve(ctx, db, item.GameTypeCode, item.ProductCode)
		if err != nil {
			return nil, err
		}

		wager, _, err := s.settleWager(ctx, db, item.WagerID, event.UserID, item.TransactionAmount, isRefund)
		if err != nil {
			return nil, err
		}

		batch = append(batch, domain.TransactionLine{
			UserID:                event.UserID,
			WagerID:               wager.ID,
			GameTypeID:            res.GameTypeID,
			ProductID:             res.ProductID,
			SeamlessTransactionID: item.TransactionID,
			Rate:                  res.Rate,
			TransactionAmount:     item.TransactionAmount,
			BetAmount:             item.BetAmount,
			ValidBetAmount:        item.ValidBetAmount,
			Status:                item.Status,
			SeamlessEventID:       event.ID,
		})
		jobs = append(jobs, transferJob{
			meta: domain.TransferMeta{
				WagerID:       item.WagerID,
				EventID:       event.MessageID,
				TransactionID: item.TransactionID,
			},
			kind: transferKind(item.TransactionAmount, isRefund),
		})
	}

	inserted, err := s.lines.BulkInsert(ctx, db, batch)
	if err != nil {
		return nil, err
	}
	if len(inserted) != len(jobs) {
		return nil, domain.ErrInternal(fmt.Sprintf("inserted %d of %d lines", len(inserted), len(jobs)), nil)
	}
	for i := range jobs {
		jobs[i].line = inserted[i]
	}
	return jobs, nil
}

// settleWager creates or adjusts the wager row for one line under a row lock.
// At most one wager row ever exists per provider wager id.
func (s *Service) settleWager(ctx context.Context, db repository.DBTX, seamlessWagerID string, userID int64, transactionAmount int64, isRefund bool) (*domain.Wager, bool, error) {
	existing, err := s.wagers.LockBySeamlessID(ctx, db, seamlessWagerID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		status := domain.StatusForAmount(transactionAmount)
		if isRefund {
			status = domain.WagerRefund
		}
		wager := &domain.Wager{
			UserID:          userID,
			SeamlessWagerID: seamlessWagerID,
			Status:          status,
		}
		if err := s.wagers.Create(ctx, db, wager); err != nil {
			return nil, false, err
		}
		return wager, true, nil
	}

	// Later sighting of a known wager: a refund wins outright, anything else
	// recomputes the status from the new amount's sign.
	status := domain.StatusForAmount(transactionAmount)
	if isRefund {
		status = domain.WagerRefund
	}
	if err := s.wagers.UpdateStatus(ctx, db, existing.ID, status); err != nil {
		return nil, false, err
	}
	existing.Status = status
	return existing, false, nil
}

func transferKind(transactionAmount int64, isRefund bool) domain.TransferKind {
	switch {
	case isRefund:
		return domain.KindRefund
	case transactionAmount > 0:
		return domain.KindPayout
	default:
		return domain.KindStake
	}
}

func validateRequest(req Request) error {
	if req.UserID <= 0 {
		return domain.ErrValidation("missing member")
	}
	if req.MessageID == "" {
		return domain.ErrValidation("missing MessageID")
	}
	if len(req.Lines) == 0 {
		return domain.ErrValidation("no transactions in request")
	}
	for _, item := range req.Lines {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}
