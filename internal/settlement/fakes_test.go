package settlement

import (
	"context"
	"fmt"

	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/repository"
	"github.com/mmslot/seamless-wallet/internal/retry"
)

// passthroughRunner runs the unit of work directly, without a database or
// retry loop. Failures injected by fakes surface unchanged.
type passthroughRunner struct{}

func (passthroughRunner) InTx(ctx context.Context, _ retry.Policy, fn func(ctx context.Context, db repository.DBTX) error) error {
	return fn(ctx, nil)
}

type memWalletRepo struct {
	wallets map[int64]*domain.Wallet
}

func newMemWalletRepo(holders ...int64) *memWalletRepo {
	r := &memWalletRepo{wallets: make(map[int64]*domain.Wallet)}
	for _, h := range holders {
		r.wallets[h] = &domain.Wallet{HolderID: h, Currency: "USD"}
	}
	return r
}

func (r *memWalletRepo) FindByHolder(_ context.Context, _ repository.DBTX, holderID int64) (*domain.Wallet, error) {
	return r.wallets[holderID], nil
}

func (r *memWalletRepo) LockForUpdate(_ context.Context, _ repository.DBTX, holderID int64) (*domain.Wallet, error) {
	return r.wallets[holderID], nil
}

func (r *memWalletRepo) Create(_ context.Context, _ repository.DBTX, wallet *domain.Wallet) error {
	r.wallets[wallet.HolderID] = wallet
	return nil
}

func (r *memWalletRepo) ApplyDelta(_ context.Context, _ repository.DBTX, holderID int64, delta int64) (*domain.Wallet, error) {
	w := r.wallets[holderID]
	if w == nil {
		return nil, domain.ErrWalletNotFound(holderID)
	}
	w.Balance += delta
	return w, nil
}

func (r *memWalletRepo) SetBalance(_ context.Context, _ repository.DBTX, holderID int64, balance int64) error {
	w := r.wallets[holderID]
	if w == nil {
		return domain.ErrWalletNotFound(holderID)
	}
	w.Balance = balance
	return nil
}

type memWagerRepo struct {
	nextID int64
	byID   map[string]*domain.Wager
}

func newMemWagerRepo() *memWagerRepo {
	return &memWagerRepo{byID: make(map[string]*domain.Wager)}
}

func (r *memWagerRepo) LockBySeamlessID(_ context.Context, _ repository.DBTX, seamlessWagerID string) (*domain.Wager, error) {
	return r.byID[seamlessWagerID], nil
}

func (r *memWagerRepo) FindBySeamlessID(_ context.Context, _ repository.DBTX, seamlessWagerID string) (*domain.Wager, error) {
	return r.byID[seamlessWagerID], nil
}

func (r *memWagerRepo) Create(_ context.Context, _ repository.DBTX, wager *domain.Wager) error {
	r.nextID++
	wager.ID = r.nextID
	r.byID[wager.SeamlessWagerID] = wager
	return nil
}

func (r *memWagerRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id int64, status domain.WagerStatus) error {
	for _, w := range r.byID {
		if w.ID == id {
			w.Status = status
			return nil
		}
	}
	return fmt.Errorf("wager %d not found", id)
}

type memTxRepo struct {
	nextID int64
	lines  []domain.TransactionLine
	byTxID map[string]bool
}

func newMemTxRepo() *memTxRepo {
	return &memTxRepo{byTxID: make(map[string]bool)}
}

func (r *memTxRepo) BulkInsert(_ context.Context, _ repository.DBTX, lines []domain.TransactionLine) ([]domain.TransactionLine, error) {
	// Mirrors the unique index on the provider transaction id.
	for _, l := range lines {
		if r.byTxID[l.SeamlessTransactionID] {
			return nil, domain.ErrDuplicateTransaction(l.SeamlessTransactionID)
		}
	}
	out := make([]domain.TransactionLine, 0, len(lines))
	for _, l := range lines {
		r.nextID++
		l.ID = r.nextID
		r.byTxID[l.SeamlessTransactionID] = true
		r.lines = append(r.lines, l)
		out = append(out, l)
	}
	return out, nil
}

func (r *memTxRepo) FindBySeamlessID(_ context.Context, _ repository.DBTX, seamlessTransactionID string) (*domain.TransactionLine, error) {
	for i := range r.lines {
		if r.lines[i].SeamlessTransactionID == seamlessTransactionID {
			return &r.lines[i], nil
		}
	}
	return nil, nil
}

func (r *memTxRepo) ListByEvent(_ context.Context, _ repository.DBTX, seamlessEventID int64) ([]domain.TransactionLine, error) {
	var out []domain.TransactionLine
	for _, l := range r.lines {
		if l.SeamlessEventID == seamlessEventID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memEventRepo struct {
	nextID int64
	events []*domain.Event
}

func (r *memEventRepo) Insert(_ context.Context, _ repository.DBTX, event *domain.Event) error {
	for _, e := range r.events {
		if e.MessageID == event.MessageID {
			return domain.ErrDuplicateEvent(event.MessageID)
		}
	}
	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, event)
	return nil
}

func (r *memEventRepo) SetTransferStatus(_ context.Context, _ repository.DBTX, id int64, status domain.TransferStatus) error {
	for _, e := range r.events {
		if e.ID == id {
			e.TransferStatus = status
			return nil
		}
	}
	return fmt.Errorf("event %d not found", id)
}

func (r *memEventRepo) FindByMessageID(_ context.Context, _ repository.DBTX, messageID string) (*domain.Event, error) {
	for _, e := range r.events {
		if e.MessageID == messageID {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memEventRepo) ListPendingTransfers(_ context.Context, _ repository.DBTX, limit int) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range r.events {
		if e.TransferStatus == domain.TransferPending {
			out = append(out, *e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// memRefRepo serves fixed reference data and counts lookups so tests can
// assert memoization.
type memRefRepo struct {
	gameTypes map[string]*domain.GameType
	products  map[string]*domain.Product
	rates     map[[2]int64]*int
	lookups   int
}

func newMemRefRepo() *memRefRepo {
	return &memRefRepo{
		gameTypes: make(map[string]*domain.GameType),
		products:  make(map[string]*domain.Product),
		rates:     make(map[[2]int64]*int),
	}
}

func (r *memRefRepo) addMapping(gameCode string, gameTypeID int64, productCode string, productID int64, rate *int) {
	r.gameTypes[gameCode] = &domain.GameType{ID: gameTypeID, Code: gameCode, Name: gameCode, Status: 1}
	r.products[productCode] = &domain.Product{ID: productID, Code: productCode, Name: productCode, Status: 1}
	r.rates[[2]int64{gameTypeID, productID}] = rate
}

func (r *memRefRepo) GameTypeByCode(_ context.Context, _ repository.DBTX, code string) (*domain.GameType, error) {
	r.lookups++
	return r.gameTypes[code], nil
}

func (r *memRefRepo) ProductByCode(_ context.Context, _ repository.DBTX, code string) (*domain.Product, error) {
	r.lookups++
	return r.products[code], nil
}

func (r *memRefRepo) Rate(_ context.Context, _ repository.DBTX, gameTypeID, productID int64) (*int, bool, error) {
	r.lookups++
	rate, found := r.rates[[2]int64{gameTypeID, productID}]
	return rate, found, nil
}

type memOutboxRepo struct {
	drafts []domain.OutboxDraft
}

func (r *memOutboxRepo) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	r.drafts = append(r.drafts, draft)
	return nil
}

func (r *memOutboxRepo) FetchUnpublished(context.Context, repository.DBTX, int) ([]repository.OutboxRow, error) {
	return nil, nil
}

func (r *memOutboxRepo) MarkPublished(context.Context, repository.DBTX, []int64) error {
	return nil
}

type memAuditRepo struct {
	entries []repository.AuditEntry
}

func (r *memAuditRepo) Insert(_ context.Context, _ repository.DBTX, entry repository.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memAuditRepo) NetByHolder(_ context.Context, _ repository.DBTX, holderID int64) (int64, error) {
	var net int64
	for _, e := range r.entries {
		if e.CreditHolder == holderID {
			net += e.Amount
		} else if e.DebitHolder == holderID {
			net -= e.Amount
		}
	}
	return net, nil
}
