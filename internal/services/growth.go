package services

import (
	"context"
	"time"

	"tree-growth-backend/internal/models"
	"tree-growth-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// LevelGoal is the fed amount one upgrade consumes.
const LevelGoal = 1000

// GrowthService owns the per-user tree ledger. Feeding and upgrading are
// deliberately two separate transactions: the client plays an animation
// between "points fed" and "level increases", so a ledger sitting at
// fed >= LevelGoal is a normal state that the next Upgrade call resolves.
type GrowthService struct {
	store repository.Store
	now   func() time.Time
}

// NewGrowthService creates a new growth service
func NewGrowthService(store repository.Store) *GrowthService {
	return &GrowthService{
		store: store,
		now:   time.Now,
	}
}

// Tree returns the user's ledger, or the defaults for a user that has
// never been credited. The defaults are not persisted by a read.
func (s *GrowthService) Tree(ctx context.Context, userID string) (*models.GrowthLedger, error) {
	var ledger *models.GrowthLedger
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		var err error
		ledger, err = tx.GetLedger(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = repository.NewLedger(userID, s.now())
	}
	return ledger, nil
}

// FeedAll moves the entire pending balance into fed and returns the amount
// moved; 0 when there was nothing pending. Does not level up.
func (s *GrowthService) FeedAll(ctx context.Context, userID string) (int, error) {
	moved := 0
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		moved = 0
		ledger, err := tx.GetLedger(ctx, userID)
		if err != nil {
			return err
		}
		if ledger == nil || ledger.Pending <= 0 {
			return nil
		}
		moved = ledger.Pending
		ledger.Fed = satAdd(ledger.Fed, moved)
		ledger.Pending = 0
		ledger.UpdatedAt = s.now()
		return tx.PutLedger(ctx, ledger)
	})
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		log.Info().Str("user_id", userID).Int("amount", moved).Msg("Tree fed")
	}
	return moved, nil
}

// Upgrade consumes LevelGoal fed points for one level. Returns false
// without mutation when fed is short.
func (s *GrowthService) Upgrade(ctx context.Context, userID string) (bool, error) {
	upgraded := false
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		upgraded = false
		ledger, err := tx.GetLedger(ctx, userID)
		if err != nil {
			return err
		}
		if ledger == nil || ledger.Fed < LevelGoal {
			return nil
		}
		ledger.Fed -= LevelGoal
		ledger.Level++
		ledger.UpdatedAt = s.now()
		upgraded = true
		return tx.PutLedger(ctx, ledger)
	})
	if err != nil {
		return false, err
	}
	if upgraded {
		log.Info().Str("user_id", userID).Msg("Tree upgraded")
	}
	return upgraded, nil
}

// ForceLevelUp increments the level without consuming fed points.
// Administrative operation, not part of the reward path.
func (s *GrowthService) ForceLevelUp(ctx context.Context, userID string) error {
	return s.store.RunTx(ctx, func(tx repository.Tx) error {
		ledger, err := tx.GetLedger(ctx, userID)
		if err != nil {
			return err
		}
		if ledger == nil {
			ledger = repository.NewLedger(userID, s.now())
		}
		ledger.Level++
		ledger.UpdatedAt = s.now()
		return tx.PutLedger(ctx, ledger)
	})
}

// ResetLevel0 resets the level to 0. Administrative operation.
func (s *GrowthService) ResetLevel0(ctx context.Context, userID string) error {
	return s.store.RunTx(ctx, func(tx repository.Tx) error {
		ledger, err := tx.GetLedger(ctx, userID)
		if err != nil {
			return err
		}
		if ledger == nil {
			ledger = repository.NewLedger(userID, s.now())
		}
		ledger.Level = 0
		ledger.UpdatedAt = s.now()
		return tx.PutLedger(ctx, ledger)
	})
}
