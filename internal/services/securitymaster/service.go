// Package securitymaster resolves static per-ticker reference metadata.
// Sources are consulted in order; a ticker no source knows still gets a
// placeholder record so the router can fall back to Others.
package securitymaster

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Service implements interfaces.SecurityMasterProvider.
type Service struct {
	sources []interfaces.SecurityMasterSource
	logger  arbor.ILogger
	now     func() time.Time
}

// NewService creates a lookup over sources. With no sources the built-in
// reference table is used.
func NewService(logger arbor.ILogger, sources ...interfaces.SecurityMasterSource) *Service {
	if len(sources) == 0 {
		sources = []interfaces.SecurityMasterSource{NewTableSource()}
	}
	return &Service{sources: sources, logger: logger, now: time.Now}
}

// Get returns the record for ticker. The ticker is trimmed, upper-cased and
// stripped of any exchange prefix before lookup.
func (s *Service) Get(ctx context.Context, ticker string) models.SecurityMaster {
	code := common.ParseTicker(ticker).Code

	for _, src := range s.sources {
		record, err := s.lookup(ctx, src, code)
		if err == nil {
			return record
		}
		if !errors.Is(err, interfaces.ErrSecurityNotFound) {
			s.logger.Warn().Err(err).Str("ticker", code).Str("source", src.Name()).Msg("Security master source failed")
		}
	}

	s.logger.Debug().Str("ticker", code).Msg("No security master record, using placeholder")
	return Placeholder(code, s.now())
}

// lookup isolates a source so a panicking vendor adapter cannot break the run.
func (s *Service) lookup(ctx context.Context, src interfaces.SecurityMasterSource, ticker string) (record models.SecurityMaster, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("source", src.Name()).Str("ticker", ticker).Msgf("Security master source panicked: %v", r)
			err = interfaces.ErrSecurityNotFound
		}
	}()
	return src.Lookup(ctx, ticker)
}
