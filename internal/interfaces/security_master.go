package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/tradeprep/internal/models"
)

// ErrSecurityNotFound is returned by lookup sources that have no record for a ticker.
var ErrSecurityNotFound = errors.New("security not found")

// SecurityMasterSource resolves reference metadata from one origin
// (built-in table, cache, market-data vendor).
type SecurityMasterSource interface {
	Name() string
	Lookup(ctx context.Context, ticker string) (models.SecurityMaster, error)
}

// SecurityMasterProvider always returns a record; unknown tickers get a placeholder.
type SecurityMasterProvider interface {
	Get(ctx context.Context, ticker string) models.SecurityMaster
}

// SecurityMasterStorage caches resolved records.
type SecurityMasterStorage interface {
	GetSecurity(ctx context.Context, ticker string) (*models.SecurityMaster, error)
	SaveSecurity(ctx context.Context, record models.SecurityMaster) error
}
