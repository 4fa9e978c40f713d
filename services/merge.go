package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camden-git/peoplegraph/metrics"
	"github.com/camden-git/peoplegraph/models"
	"github.com/camden-git/peoplegraph/repository"
	"go.uber.org/zap"
)

// DefaultMergeAttempts bounds how often a merge is re-run after a store conflict.
const DefaultMergeAttempts = 3

// MergeRequest is a user-approved merge of SourceID into TargetID
type MergeRequest struct {
	TargetID            string                     `json:"target_id"`
	SourceID            string                     `json:"source_id"`
	FieldChoices        map[MergeField]FieldChoice `json:"field_choices"`
	PrimaryAppearanceID *string                    `json:"primary_appearance_id,omitempty"`
	// DropDuplicateAppearances discards source appearances from rosters the
	// target already appears in; their stored images are cleaned up afterwards.
	DropDuplicateAppearances bool `json:"drop_duplicate_appearances"`
}

// MergeResult reports a committed merge
type MergeResult struct {
	Target                 *models.Person `json:"target"`
	DeletedSourceID        string         `json:"deleted_source_id"`
	RewrittenConnectionIDs []string       `json:"rewritten_connection_ids"`
	DeletedConnectionIDs   []string       `json:"deleted_connection_ids"`
	OrphanedImagePaths     []string       `json:"orphaned_image_paths"`
	MergeRecordID          string         `json:"merge_record_id"`
}

// ImageCleaner accepts stored images for best-effort deletion after a merge
type ImageCleaner interface {
	Enqueue(paths []string) int
}

// MergeService previews and executes merges against the store
type MergeService struct {
	store       *repository.Store
	cleaner     ImageCleaner
	metrics     *metrics.EngineMetrics
	log         *zap.Logger
	maxAttempts int

	// afterLoad runs right after the pair is read; beforeCommit at the end of
	// every attempt. Both run inside the transaction.
	afterLoad    func(tx *repository.Store, target, source *models.Person) error
	beforeCommit func(tx *repository.Store) error
}

// NewMergeService creates a merge service. cleaner and m may be nil.
func NewMergeService(store *repository.Store, cleaner ImageCleaner, m *metrics.EngineMetrics, log *zap.Logger, maxAttempts int) *MergeService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMergeAttempts
	}
	return &MergeService{
		store:       store,
		cleaner:     cleaner,
		metrics:     m,
		log:         log.Named("merge"),
		maxAttempts: maxAttempts,
	}
}

// Preview loads both people and their connections and describes the merge
func (s *MergeService) Preview(ctx context.Context, targetID, sourceID string) (*MergePreview, error) {
	if targetID == "" || sourceID == "" {
		return nil, fmt.Errorf("%w: target_id and source_id are required", ErrValidation)
	}
	if targetID == sourceID {
		return nil, fmt.Errorf("%w: cannot merge person %s into itself", ErrInvalidOperation, targetID)
	}

	store := s.store.WithContext(ctx)
	target, source, err := loadPair(store, targetID, sourceID)
	if err != nil {
		return nil, err
	}
	conns, err := incidentConnections(store, targetID, sourceID)
	if err != nil {
		return nil, err
	}

	preview := PreviewMerge(*target, *source, conns)
	return &preview, nil
}

// Merge folds SourceID into TargetID in one transaction. A store conflict
// aborts the attempt and the merge is re-run from fresh reads, up to the
// configured attempt bound.
func (s *MergeService) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	start := time.Now()
	result, err := s.mergeWithRetry(ctx, req)
	s.metrics.RecordMerge(mergeResultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	s.log.Info("merged people",
		zap.String("target_id", req.TargetID),
		zap.String("source_id", req.SourceID),
		zap.Int("rewritten_connections", len(result.RewrittenConnectionIDs)),
		zap.Int("deleted_connections", len(result.DeletedConnectionIDs)),
		zap.Duration("took", time.Since(start)))

	if len(result.OrphanedImagePaths) > 0 && s.cleaner != nil {
		queued := s.cleaner.Enqueue(result.OrphanedImagePaths)
		if queued < len(result.OrphanedImagePaths) {
			s.log.Warn("not all orphaned images were queued for cleanup",
				zap.Int("orphaned", len(result.OrphanedImagePaths)), zap.Int("queued", queued))
		}
	}
	return result, nil
}

func (s *MergeService) mergeWithRetry(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if err := validateMergeRequest(req); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.attempt(ctx, req)
		if err == nil {
			s.metrics.RecordMergeAttempt("committed")
			return result, nil
		}
		if !IsRetryable(err) {
			s.metrics.RecordMergeAttempt("failed")
			return nil, err
		}
		s.metrics.RecordMergeAttempt("conflict")
		s.log.Warn("merge attempt aborted by concurrent write",
			zap.String("target_id", req.TargetID),
			zap.String("source_id", req.SourceID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		lastErr = err
	}
	return nil, fmt.Errorf("merge gave up after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *MergeService) attempt(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	var result *MergeResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		// (1) load
		target, source, err := loadPair(tx, req.TargetID, req.SourceID)
		if err != nil {
			return err
		}
		if s.afterLoad != nil {
			if err := s.afterLoad(tx, target, source); err != nil {
				return err
			}
		}

		// (2) fields
		applied, err := resolveFields(target, source, req.FieldChoices)
		if err != nil {
			return err
		}

		// (3) appearances
		dropped, err := mergeAppearances(target, source, req.PrimaryAppearanceID, req.DropDuplicateAppearances)
		if err != nil {
			return err
		}
		for i := range target.FaceAppearances {
			if err := tx.People.UpdateAppearance(&target.FaceAppearances[i]); err != nil {
				return storeError(err, "appearance "+target.FaceAppearances[i].ID)
			}
		}
		droppedIDs := make([]string, 0, len(dropped))
		for _, a := range dropped {
			droppedIDs = append(droppedIDs, a.ID)
		}
		if err := tx.People.DeleteAppearances(droppedIDs); err != nil {
			return storeError(err, "dropped appearances")
		}

		// (4) rosters
		target.SourceImageIDs = unionRosters(target.SourceImageIDs, source.SourceImageIDs)
		if err := tx.People.Update(target); err != nil {
			return storeError(err, "target person "+target.ID)
		}

		// (5) connections
		conns, err := incidentConnections(tx, target.ID, source.ID)
		if err != nil {
			return err
		}
		rewritten := []string{}
		deleted := []string{}
		for _, step := range planRewiring(target.ID, source.ID, conns) {
			conn := step.conn
			if step.action == actionRewrite {
				if err := tx.Connections.UpdateEndpoints(&conn); err != nil {
					return storeError(err, "connection "+conn.ID)
				}
				rewritten = append(rewritten, conn.ID)
				continue
			}
			if err := tx.Connections.DeleteAtVersion(conn.ID, conn.Version); err != nil {
				return storeError(err, "connection "+conn.ID)
			}
			deleted = append(deleted, conn.ID)
		}

		// (6) source
		if err := tx.People.Delete(source.ID, source.Version); err != nil {
			return storeError(err, "source person "+source.ID)
		}

		orphans := orphanedImages(target.FaceAppearances, dropped)
		record := &models.MergeRecord{
			OwnerID:                target.OwnerID,
			TargetPersonID:         target.ID,
			SourcePersonID:         source.ID,
			SourceName:             source.Name,
			FieldChoices:           applied,
			RewrittenConnectionIDs: rewritten,
			DeletedConnectionIDs:   deleted,
			OrphanedImagePaths:     orphans,
		}
		if err := tx.Merges.Create(record); err != nil {
			return storeError(err, "merge record")
		}

		if s.beforeCommit != nil {
			if err := s.beforeCommit(tx); err != nil {
				return err
			}
		}

		result = &MergeResult{
			Target:                 target,
			DeletedSourceID:        source.ID,
			RewrittenConnectionIDs: rewritten,
			DeletedConnectionIDs:   deleted,
			OrphanedImagePaths:     orphans,
			MergeRecordID:          record.ID,
		}
		return nil
	})
	if err != nil {
		// errors from Commit itself have not been classified yet
		if !IsRetryable(err) && isBusy(err) {
			return nil, fmt.Errorf("%w: commit: %v", ErrConflict, err)
		}
		return nil, err
	}
	return result, nil
}

func validateMergeRequest(req MergeRequest) error {
	if req.TargetID == "" || req.SourceID == "" {
		return fmt.Errorf("%w: target_id and source_id are required", ErrValidation)
	}
	if req.TargetID == req.SourceID {
		return fmt.Errorf("%w: cannot merge person %s into itself", ErrInvalidOperation, req.TargetID)
	}
	for field, choice := range req.FieldChoices {
		if !field.Valid() {
			return fmt.Errorf("%w: unknown merge field %q", ErrValidation, field)
		}
		if !choice.Valid() {
			return fmt.Errorf("%w: invalid choice %q for field %s", ErrValidation, choice, field)
		}
	}
	return nil
}

func loadPair(store *repository.Store, targetID, sourceID string) (*models.Person, *models.Person, error) {
	target, err := store.People.GetByID(targetID)
	if err != nil {
		return nil, nil, storeError(err, "target person "+targetID)
	}
	source, err := store.People.GetByID(sourceID)
	if err != nil {
		return nil, nil, storeError(err, "source person "+sourceID)
	}
	if target.OwnerID != source.OwnerID {
		return nil, nil, fmt.Errorf("%w: people %s and %s belong to different owners", ErrInvalidOperation, targetID, sourceID)
	}
	return target, source, nil
}

// incidentConnections returns connections touching either person, each once,
// target's first.
func incidentConnections(store *repository.Store, targetID, sourceID string) ([]models.Connection, error) {
	targetConns, err := store.Connections.ListIncident(targetID)
	if err != nil {
		return nil, storeError(err, "connections of "+targetID)
	}
	sourceConns, err := store.Connections.ListIncident(sourceID)
	if err != nil {
		return nil, storeError(err, "connections of "+sourceID)
	}

	seen := make(map[string]bool, len(targetConns)+len(sourceConns))
	all := make([]models.Connection, 0, len(targetConns)+len(sourceConns))
	for _, list := range [][]models.Connection{targetConns, sourceConns} {
		for _, c := range list {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			all = append(all, c)
		}
	}
	return all, nil
}

// resolveFields applies the field choices to target and returns the choice
// used per conflicting field.
func resolveFields(target, source *models.Person, choices map[MergeField]FieldChoice) (map[string]string, error) {
	applied := make(map[string]string)
	var missing []string
	for _, conflict := range AnalyzeConflicts(*target, *source) {
		choice, ok := choices[conflict.Field]
		if !ok {
			if conflict.RequiresChoice {
				missing = append(missing, string(conflict.Field))
				continue
			}
			choice = KeepTarget
			if conflict.TargetValue == "" {
				choice = TakeSource
			}
		}
		if choice == TakeSource {
			conflict.Field.set(target, conflict.SourceValue)
		}
		applied[string(conflict.Field)] = string(choice)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: a choice is required for %s", ErrValidation, strings.Join(missing, ", "))
	}
	return applied, nil
}

// mergeAppearances moves the source's appearances onto target (target's
// first) and settles the primary flag. It returns the source appearances that
// were dropped as roster duplicates.
func mergeAppearances(target, source *models.Person, primaryID *string, dropDuplicates bool) ([]models.FaceAppearance, error) {
	targetRosters := make(map[string]bool, len(target.FaceAppearances))
	targetHasPrimary := false
	for _, a := range target.FaceAppearances {
		targetRosters[a.SourceImageID] = true
		targetHasPrimary = targetHasPrimary || a.IsPrimary
	}

	combined := make([]models.FaceAppearance, 0, len(target.FaceAppearances)+len(source.FaceAppearances))
	combined = append(combined, target.FaceAppearances...)
	var dropped []models.FaceAppearance
	for _, a := range source.FaceAppearances {
		chosen := primaryID != nil && *primaryID == a.ID
		if dropDuplicates && a.SourceImageID != "" && targetRosters[a.SourceImageID] && !chosen {
			dropped = append(dropped, a)
			continue
		}
		a.PersonID = target.ID
		if targetHasPrimary && primaryID == nil {
			a.IsPrimary = false
		}
		combined = append(combined, a)
	}

	if primaryID != nil {
		found := false
		for i := range combined {
			combined[i].IsPrimary = combined[i].ID == *primaryID
			found = found || combined[i].IsPrimary
		}
		if !found {
			return nil, fmt.Errorf("%w: appearance %s belongs to neither person", ErrValidation, *primaryID)
		}
	}

	target.PrimaryAppearanceID = nil
	for i := range combined {
		combined[i].Position = i
		if !combined[i].IsPrimary {
			continue
		}
		if target.PrimaryAppearanceID != nil {
			combined[i].IsPrimary = false
			continue
		}
		id := combined[i].ID
		target.PrimaryAppearanceID = &id
	}
	target.FaceAppearances = combined
	return dropped, nil
}

// orphanedImages lists stored images referenced only by dropped appearances
func orphanedImages(kept, dropped []models.FaceAppearance) []string {
	inUse := make(map[string]bool, len(kept))
	for _, a := range kept {
		inUse[a.StoredImagePath] = true
	}
	orphans := []string{}
	for _, a := range dropped {
		if a.StoredImagePath == "" || inUse[a.StoredImagePath] {
			continue
		}
		inUse[a.StoredImagePath] = true
		orphans = append(orphans, a.StoredImagePath)
	}
	return orphans
}

func mergeResultLabel(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "error"
}
