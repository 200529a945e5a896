package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/pkg/events"
)

// changeNotifier publishes change events and drops derived caches after writes.
type changeNotifier struct {
	publisher events.Publisher
	cache     *CacheService
	logger    *zap.Logger
}

func newChangeNotifier(publisher events.Publisher, cache *CacheService, logger *zap.Logger) changeNotifier {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return changeNotifier{publisher: publisher, cache: cache, logger: logger}
}

func (n changeNotifier) changed(ctx context.Context, subject string, payload interface{}) {
	n.cache.InvalidateDerived(ctx)
	if err := n.publisher.Publish(ctx, subject, payload); err != nil {
		n.logger.Warn("publish event failed", zap.String("subject", subject), zap.Error(err))
	}
}
