package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/storage"
	"github.com/rryowa/weq_api/internal/util"
)

// RevocationSweeper deletes revocation records whose token has expired on
// its own. A record is kept until the verification leeway has passed too,
// otherwise TokenCodec would accept the token again for the rest of it.
type RevocationSweeper struct {
	purger   storage.RevocationPurger
	interval time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewRevocationSweeper(purger storage.RevocationPurger, interval time.Duration, log *zap.SugaredLogger) *RevocationSweeper {
	return &RevocationSweeper{
		purger:   purger,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *RevocationSweeper) Run(ctx context.Context) {
	_, _ = s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

// Sweep purges once and reports how many records went away.
func (s *RevocationSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-util.JWTLeeWay)
	n, err := s.purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Errorw("failed to purge expired revocations", "error", err)
		}
		return 0, fmt.Errorf("purge expired revocations: %w", err)
	}
	if n > 0 {
		s.log.Infow("purged expired revocations", "count", n)
	}
	return n, nil
}
