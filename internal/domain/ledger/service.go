package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo     *Repository
	cache    *redis.Client // optional, nil disables caching
	cacheTTL time.Duration
}

func NewService(repo *Repository, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

func balanceCacheKey(userID uuid.UUID) string {
	return "wallet:balance:" + userID.String()
}

// GetBalance returns the user's balance, served from cache within the
// configured consistency window.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, balanceCacheKey(userID)).Result(); err == nil {
			if balance, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return balance, nil
			}
		}
	}

	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, balanceCacheKey(userID), balance, s.cacheTTL).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache set failed")
		}
	}
	return balance, nil
}

// Credit applies a verified order to its owner's wallet exactly once.
// This is the only path by which a top-up increases a balance.
func (s *Service) Credit(ctx context.Context, orderID uuid.UUID) (*Entry, error) {
	entry, err := s.repo.CreditOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// Drop the stale cached balance so the next read sees the credit.
		if err := s.cache.Del(ctx, balanceCacheKey(entry.UserID)).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", entry.UserID.String()).Msg("balance cache invalidation failed")
		}
	}

	log.Info().
		Str("order_id", orderID.String()).
		Str("user_id", entry.UserID.String()).
		Str("entry_id", entry.ID.String()).
		Int64("amount", entry.Amount).
		Str("source", string(entry.Source)).
		Msg("wallet credited")

	return entry, nil
}

// History returns a page of the user's ledger entries.
func (s *Service) History(ctx context.Context, userID uuid.UUID, filter EntryFilter) ([]Entry, int, error) {
	return s.repo.ListEntries(ctx, userID, filter)
}

// Audit recomputes the entry sum and compares it with the stored balance.
func (s *Service) Audit(ctx context.Context, userID uuid.UUID) (balance, entrySum int64, err error) {
	balance, err = s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	entrySum, err = s.repo.SumEntries(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if balance != entrySum {
		log.Error().
			Str("user_id", userID.String()).
			Int64("balance", balance).
			Int64("entry_sum", entrySum).
			Msg("ledger invariant violation detected")
	}
	return balance, entrySum, nil
}
