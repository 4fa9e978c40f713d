package services

import (
	"context"
	"fmt"
	"time"

	"github.com/camden-git/peoplegraph/metrics"
	"github.com/camden-git/peoplegraph/repository"
	"go.uber.org/zap"
)

// DefaultScanLimit bounds the candidate set of one duplicate scan.
const DefaultScanLimit = 2000

// DuplicateService runs duplicate scans over an owner's people
type DuplicateService struct {
	store     *repository.Store
	metrics   *metrics.EngineMetrics
	log       *zap.Logger
	scanLimit int
}

// NewDuplicateService creates a duplicate scanner. A non-positive scanLimit uses DefaultScanLimit.
func NewDuplicateService(store *repository.Store, m *metrics.EngineMetrics, log *zap.Logger, scanLimit int) *DuplicateService {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &DuplicateService{store: store, metrics: m, log: log.Named("duplicates"), scanLimit: scanLimit}
}

// Scan scores every pair of the owner's people and returns the likely duplicates
func (s *DuplicateService) Scan(ctx context.Context, ownerID string) ([]DuplicateSuggestion, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	people, err := s.store.WithContext(ctx).People.ListByOwner(ownerID)
	if err != nil {
		return nil, storeError(err, "people of owner "+ownerID)
	}
	if len(people) > s.scanLimit {
		return nil, fmt.Errorf("%w: %d candidates exceed the scan limit of %d", ErrValidation, len(people), s.scanLimit)
	}

	start := time.Now()
	suggestions, err := ScorePairs(ctx, people)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []DuplicateSuggestion{}
	}

	counts := make(map[Confidence]int)
	for _, sg := range suggestions {
		counts[sg.Confidence]++
	}
	for _, c := range []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow} {
		s.metrics.RecordSuggestions(string(c), counts[c])
	}

	s.log.Debug("duplicate scan finished",
		zap.String("owner_id", ownerID),
		zap.Int("candidates", len(people)),
		zap.Int("suggestions", len(suggestions)),
		zap.Duration("took", time.Since(start)))
	return suggestions, nil
}
