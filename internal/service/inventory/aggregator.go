package inventory

import (
	"context"

	"go.uber.org/zap"

	"bloodlink/internal/cache"
	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

// Aggregator owns the derived inventory fields of facility users.
// It is the only holder of the projection writer.
type Aggregator struct {
	writer repository.InventoryProjectionWriter
	kv     cache.KVStore
	log    *zap.Logger
}

func NewAggregator(writer repository.InventoryProjectionWriter, kv cache.KVStore, log *zap.Logger) *Aggregator {
	if kv == nil {
		kv = cache.NopStore{}
	}
	return &Aggregator{writer: writer, kv: kv, log: log.Named("aggregator")}
}

// Recompute rebuilds the projection for facility from its current units.
// Running it twice in a row writes the same values.
func (a *Aggregator) Recompute(ctx context.Context, facility string) (domain.InventorySummary, []string, error) {
	summary, types, err := a.writer.RecomputeInventoryProjection(ctx, facility)
	if err != nil {
		return domain.InventorySummary{}, nil, domain.Storage(err, "failed to recompute inventory projection")
	}

	a.InvalidateAvailability(ctx, facility)

	a.log.Debug("inventory recomputed",
		zap.String("facility", facility),
		zap.Int("total_units", summary.Total()),
		zap.Strings("blood_types", types))
	return summary, types, nil
}

// InvalidateAvailability drops every cached availability search. Callers use
// it whenever a facility's visibility or display name changes.
func (a *Aggregator) InvalidateAvailability(ctx context.Context, facility string) {
	if err := a.kv.Delete(ctx, availabilityKeys()...); err != nil {
		a.log.Warn("failed to invalidate availability cache", zap.String("facility", facility), zap.Error(err))
	}
}
