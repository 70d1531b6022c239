package dex

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/vault"
)

// Adapter is one venue behind the router.
type Adapter interface {
	Name() string
	ExecuteSwap(ctx context.Context, amountIn, amountOutMin uint64, accounts []VenueAccount, signer vault.Authority) (*SwapResult, error)
}

// Router dispatches swaps to a venue adapter by pool type. It holds no
// per-swap state and is safe for concurrent use.
type Router struct {
	amm  Adapter
	clmm Adapter
}

func NewRouter(invoker Invoker, logger *logrus.Logger) *Router {
	return &Router{
		amm:  NewRaydiumAMM(invoker, logger),
		clmm: NewRaydiumCLMM(invoker, logger),
	}
}

// Adapter resolves a pool type to its venue adapter. Unknown pool types are
// rejected here, before any venue call is attempted.
func (r *Router) Adapter(poolType PoolType) (Adapter, error) {
	switch poolType {
	case PoolTypeRaydiumAMM:
		return r.amm, nil
	case PoolTypeRaydiumCLMM:
		return r.clmm, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolType, poolType)
	}
}

// ExecuteSwap routes one swap to the adapter for poolType.
func (r *Router) ExecuteSwap(
	ctx context.Context,
	poolType PoolType,
	amountIn uint64,
	amountOutMin uint64,
	accounts []VenueAccount,
	signer vault.Authority,
) (*SwapResult, error) {
	adapter, err := r.Adapter(poolType)
	if err != nil {
		return nil, err
	}
	return adapter.ExecuteSwap(ctx, amountIn, amountOutMin, accounts, signer)
}
