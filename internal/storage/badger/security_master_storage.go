package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

// securityRecord is the stored form of a cached SecurityMaster.
type securityRecord struct {
	Ticker   string `badgerhold:"key"`
	Security models.SecurityMaster
	CachedAt time.Time
}

// SecurityMasterStorage caches resolved SecurityMaster records with a TTL.
type SecurityMasterStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	ttl    time.Duration
}

// DefaultSecurityTTL bounds how long vendor-resolved reference data is reused.
const DefaultSecurityTTL = 7 * 24 * time.Hour

// NewSecurityMasterStorage creates a cache; ttl <= 0 uses DefaultSecurityTTL.
func NewSecurityMasterStorage(db *BadgerDB, logger arbor.ILogger, ttl time.Duration) *SecurityMasterStorage {
	if ttl <= 0 {
		ttl = DefaultSecurityTTL
	}
	return &SecurityMasterStorage{db: db, logger: logger, ttl: ttl}
}

// GetSecurity returns a cached record, or interfaces.ErrSecurityNotFound when
// absent or expired.
func (s *SecurityMasterStorage) GetSecurity(ctx context.Context, ticker string) (*models.SecurityMaster, error) {
	var record securityRecord
	err := s.db.Store().Get(common.NormalizeTicker(ticker), &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrSecurityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security %s: %w", ticker, err)
	}

	if time.Since(record.CachedAt) > s.ttl {
		s.logger.Debug().Str("ticker", record.Ticker).Msg("Cached security master expired")
		return nil, interfaces.ErrSecurityNotFound
	}

	return &record.Security, nil
}

// SaveSecurity upserts a record keyed by its upper-cased ticker.
func (s *SecurityMasterStorage) SaveSecurity(ctx context.Context, security models.SecurityMaster) error {
	key := common.NormalizeTicker(security.Ticker)
	record := securityRecord{
		Ticker:   key,
		Security: security,
		CachedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(key, &record); err != nil {
		return fmt.Errorf("failed to save security %s: %w", key, err)
	}
	return nil
}
