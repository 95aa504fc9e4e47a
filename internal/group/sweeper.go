package group

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper calls SweepExpired every interval until ctx is done
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Expiry sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}
