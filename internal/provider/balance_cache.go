package provider

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const balanceKey = "balance"

// BalanceCache caches CheckBalance for a short TTL so the advisory
// balance read before every rental does not burn rate-gate slots.
// All other calls pass straight through.
type BalanceCache struct {
	Client
	cache *expirable.LRU[string, float64]
}

func WrapBalanceCache(next Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		Client: next,
		cache:  expirable.NewLRU[string, float64](1, nil, ttl),
	}
}

func (b *BalanceCache) CheckBalance(ctx context.Context) (float64, error) {
	if cached, ok := b.cache.Get(balanceKey); ok {
		logutil.GetLogger(ctx).Debug("balance cache hit", zap.Float64("balance", cached))
		return cached, nil
	}
	amount, err := b.Client.CheckBalance(ctx)
	if err != nil {
		return 0, err
	}
	b.cache.Add(balanceKey, amount)
	return amount, nil
}

// Invalidate drops the cached reading; the next CheckBalance hits the
// provider. Used when a cached value would refuse a rental.
func (b *BalanceCache) Invalidate() {
	b.cache.Remove(balanceKey)
}
