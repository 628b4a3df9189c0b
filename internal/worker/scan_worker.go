package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/service"
	"github.com/spec-kit/gearguard/pkg/util"
)

// Scanner runs one AI triage pass.
type Scanner interface {
	Scan(ctx context.Context, caller domain.Caller) (*service.ScanResult, error)
}

// StartScanWorker runs scanner every interval until ctx is cancelled. The
// returned channel closes once the loop has exited. A non-positive interval
// starts nothing and returns a closed channel.
func StartScanWorker(ctx context.Context, scanner Scanner, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if scanner == nil || interval <= 0 {
		close(done)
		return done
	}
	logger = logger.Named("scan_worker")
	logger.Info("periodic AI scan enabled", zap.Duration("interval", interval))

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runScan(ctx, scanner, logger)
			}
		}
	}()
	return done
}

func runScan(ctx context.Context, scanner Scanner, logger *zap.Logger) {
	result, err := scanner.Scan(ctx, domain.SystemCaller())
	if err != nil {
		var de *util.DomainError
		if errors.As(err, &de) && de.Code == util.CodeConflict {
			logger.Debug("scan skipped; another scan is running")
			return
		}
		logger.Error("periodic scan failed", zap.Error(err))
		return
	}
	logger.Info("periodic scan finished",
		zap.Int("tickets_created", result.TicketsCreated),
		zap.Int("skipped", result.Skipped))
}
