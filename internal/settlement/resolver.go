package settlement

import (
	"context"

	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/repository"
)

// Resolver maps provider game/product codes to internal ids and the
// contractual payout rate for the pair. Results are memoized for the life of
// one resolver, so a batch that repeats the same codes hits the lookup tables
// once per pair. Build a fresh resolver per settlement batch.
type Resolver struct {
	refs repository.ReferenceRepository
	memo map[string]domain.Resolution
}

// NewResolver creates a resolver with an empty memo.
func NewResolver(refs repository.ReferenceRepository) *Resolver {
	return &Resolver{refs: refs, memo: make(map[string]domain.Resolution)}
}

// Resolve returns the internal ids and rate for a (game type code, product
// code) pair. A mapping row with an absent rate falls back to a multiplier of
// 1; that fallback is not an error.
func (r *Resolver) Resolve(ctx context.Context, db repository.DBTX, gameTypeCode, productCode string) (domain.Resolution, error) {
	key := gameTypeCode + "\x00" + productCode
	if res, ok := r.memo[key]; ok {
		return res, nil
	}

	gameType, err := r.refs.GameTypeByCode(ctx, db, gameTypeCode)
	if err != nil {
		return domain.Resolution{}, err
	}
	if gameType == nil {
		return domain.Resolution{}, domain.ErrUnknownGameType(gameTypeCode)
	}

	product, err := r.refs.ProductByCode(ctx, db, productCode)
	if err != nil {
		return domain.Resolution{}, err
	}
	if product == nil {
		return domain.Resolution{}, domain.ErrUnknownProduct(productCode)
	}

	rate, found, err := r.refs.Rate(ctx, db, gameType.ID, product.ID)
	if err != nil {
		return domain.Resolution{}, err
	}
	if !found {
		return domain.Resolution{}, domain.ErrUnmappedRate(gameTypeCode, productCode)
	}

	res := domain.Resolution{GameTypeID: gameType.ID, ProductID: product.ID, Rate: 1}
	if rate != nil {
		res.Rate = *rate
	}
	r.memo[key] = res
	return res, nil
}
