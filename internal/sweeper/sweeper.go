package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coldchain-lab/smartdelivery/internal/chain"
	"github.com/coldchain-lab/smartdelivery/internal/contracts"
	"github.com/coldchain-lab/smartdelivery/internal/services"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sweeper periodically asks the contract to clear expired deliveries and
// marks the corresponding local rows hidden. A failed run leaves local
// state untouched and waits for the next tick.
type Sweeper struct {
	gateway      chain.Gateway
	deliveries   services.DeliveryService
	adminAddress common.Address
	adminKey     string
	interval     time.Duration
	log          *zap.Logger

	// inFlight guards against a sweep starting while the previous one is
	// still awaiting confirmation, which would double-submit under a
	// duplicated nonce.
	inFlight sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// New creates a Sweeper.
func New(gateway chain.Gateway, deliveries services.DeliveryService, adminAddress, adminKey string, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		gateway:      gateway,
		deliveries:   deliveries,
		adminAddress: common.HexToAddress(adminAddress),
		adminKey:     adminKey,
		interval:     interval,
		log:          log,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the recurring sweep task.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info("expiry sweeper started", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ticker.C:
				if err := s.RunOnce(context.Background()); err != nil {
					// Failures are retried on the next scheduled tick,
					// never immediately.
					s.log.Warn("sweep run failed", zap.Error(err))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop shuts the sweeper down and waits for the loop to exit. An in-flight
// transaction wait is not interrupted.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// RunOnce performs a single sweep: submit the clear transaction, wait for
// confirmation, then hide every delivery named in the resulting event log.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if !s.inFlight.TryLock() {
		s.log.Warn("skipping sweep, previous run still awaiting confirmation")
		return nil
	}
	defer s.inFlight.Unlock()

	runID := uuid.New().String()

	nonce, err := s.gateway.PendingNonce(ctx, s.adminAddress)
	if err != nil {
		return fmt.Errorf("failed to get admin nonce: %w", err)
	}
	s.log.Debug("starting sweep run",
		zap.String("run_id", runID),
		zap.Uint64("admin_nonce", nonce))

	receipt, err := s.gateway.SubmitTransaction(ctx, chain.FunctionCall{
		Name: contracts.FnClearOldDeliveries,
	}, s.adminKey, nil)
	if err != nil {
		return fmt.Errorf("clear transaction failed: %w", err)
	}

	events, err := s.gateway.QueryEvents(ctx, contracts.EventDeliveryCleared, receipt.BlockNumber, "")
	if err != nil {
		return fmt.Errorf("failed to query cleared events: %w", err)
	}

	for _, event := range events {
		if err := s.deliveries.MarkHidden(event.DeliveryID); err != nil {
			return fmt.Errorf("failed to hide delivery %s: %w", event.DeliveryID, err)
		}
		s.log.Info("delivery expired and hidden",
			zap.String("run_id", runID),
			zap.String("delivery_id", event.DeliveryID))
	}

	s.log.Info("sweep run complete",
		zap.String("run_id", runID),
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Int("cleared", len(events)))
	return nil
}
