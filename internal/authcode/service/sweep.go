package service

import (
	"context"
	"time"

	dErrors "authgate/pkg/domain-errors"
)

// Sweep removes tickets and authorization codes that expired before now.
// Stores that evict on their own (Redis TTL) report zero.
func (s *Service) Sweep(ctx context.Context, now time.Time) (tickets, codes int, err error) {
	tickets, err = s.tickets.DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep tickets")
	}
	codes, err = s.codes.DeleteExpiredCodes(ctx, now)
	if err != nil {
		return tickets, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep authorization codes")
	}
	return tickets, codes, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			tickets, codes, err := s.Sweep(ctx, now)
			if err != nil {
				s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
				continue
			}
			if tickets+codes > 0 {
				s.logger.DebugContext(ctx, "expired records removed",
					"tickets", tickets,
					"authorization_codes", codes,
				)
			}
		}
	}
}
