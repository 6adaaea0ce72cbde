package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// IncidentRepoImpl implements IncidentRepository on GORM. Writes to a tenant
// partition are serialized through a per-tenant mutex so concurrent cycles of
// different tenants never contend and a single tenant never interleaves
// partial writes.
type IncidentRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger

	writers sync.Map // tenantID -> *sync.Mutex
}

// NewIncidentRepository creates a GORM-backed incident repository.
func NewIncidentRepository(db *gorm.DB, log logger.Logger) repository.IncidentRepository {
	return &IncidentRepoImpl{
		db:     db,
		logger: log,
	}
}

func (r *IncidentRepoImpl) writerLock(tenantID string) *sync.Mutex {
	mu, _ := r.writers.LoadOrStore(tenantID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Append persists a complete incident record atomically.
func (r *IncidentRepoImpl) Append(ctx context.Context, incident *models.Incident) error {
	mu := r.writerLock(incident.TenantID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(incident).Error
	})
	if err != nil {
		r.logger.Error(ctx, "Failed to append incident", err,
			logger.String("incident_id", incident.ID),
			logger.String("tenant_id", incident.TenantID),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	r.logger.Info(ctx, "Incident appended",
		logger.String("incident_id", incident.ID),
		logger.String("tenant_id", incident.TenantID),
		logger.String("type", string(incident.Type)),
		logger.Float64("confidence", incident.FinalConfidenceScore),
		logger.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// FindByID retrieves an incident within the tenant partition.
func (r *IncidentRepoImpl) FindByID(ctx context.Context, tenantID, incidentID string) (*models.Incident, error) {
	var incident models.Incident
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, incidentID).
		First(&incident).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrIncidentNotFound(incidentID)
		}
		r.logger.Error(ctx, "Failed to retrieve incident", err,
			logger.String("incident_id", incidentID),
			logger.String("tenant_id", tenantID),
		)
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return &incident, nil
}

func (r *IncidentRepoImpl) filtered(ctx context.Context, tenantID string, filter repository.IncidentFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Incident{}).Where("tenant_id = ?", tenantID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.MinConfidence > 0 {
		q = q.Where("final_confidence_score >= ?", filter.MinConfidence)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at < ?", filter.Until)
	}
	if filter.Archived != nil {
		q = q.Where("archived = ?", *filter.Archived)
	}
	return q
}

// List returns incidents matching the filter, newest first.
func (r *IncidentRepoImpl) List(ctx context.Context, tenantID string, filter repository.IncidentFilter) ([]*models.Incident, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	q := r.filtered(ctx, tenantID, filter).Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var incidents []*models.Incident
	if err := q.Find(&incidents).Error; err != nil {
		r.logger.Error(ctx, "Failed to list incidents", err, logger.String("tenant_id", tenantID))
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return incidents, total, nil
}

// Archive marks an incident resolved. Returns false when the ID is unknown to
// the tenant partition; re-archiving an archived incident is a no-op success.
func (r *IncidentRepoImpl) Archive(ctx context.Context, tenantID, incidentID string) (bool, error) {
	mu := r.writerLock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	incident, err := r.FindByID(ctx, tenantID, incidentID)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if incident.Archived {
		return true, nil
	}

	incident.Archive(time.Now())
	result := r.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("tenant_id = ? AND id = ?", tenantID, incidentID).
		Updates(map[string]interface{}{
			"archived":    true,
			"status":      constants.IncidentStatusResolved,
			"resolved_at": incident.ResolvedAt,
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to archive incident", result.Error,
			logger.String("incident_id", incidentID),
			logger.String("tenant_id", tenantID),
		)
		return false, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete hard-deletes an incident from the tenant partition.
func (r *IncidentRepoImpl) Delete(ctx context.Context, tenantID, incidentID string) (bool, error) {
	mu := r.writerLock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, incidentID).
		Delete(&models.Incident{})
	if result.Error != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// BulkArchive archives many incidents in one statement.
func (r *IncidentRepoImpl) BulkArchive(ctx context.Context, tenantID string, incidentIDs []string) (int64, error) {
	if len(incidentIDs) == 0 {
		return 0, nil
	}
	mu := r.writerLock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("tenant_id = ? AND id IN ? AND archived = ?", tenantID, incidentIDs, false).
		Updates(map[string]interface{}{
			"archived":    true,
			"status":      constants.IncidentStatusResolved,
			"resolved_at": &now,
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Bulk archive failed", result.Error, logger.String("tenant_id", tenantID))
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}

	r.logger.Info(ctx, "Incidents bulk archived",
		logger.String("tenant_id", tenantID),
		logger.Int("requested", len(incidentIDs)),
		logger.Int64("archived", result.RowsAffected),
	)
	return result.RowsAffected, nil
}

// BulkDelete hard-deletes many incidents in one statement.
func (r *IncidentRepoImpl) BulkDelete(ctx context.Context, tenantID string, incidentIDs []string) (int64, error) {
	if len(incidentIDs) == 0 {
		return 0, nil
	}
	mu := r.writerLock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, incidentIDs).
		Delete(&models.Incident{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateRemediation appends remediation outcome onto an existing incident.
// Decision log entries are appended, never replaced.
func (r *IncidentRepoImpl) UpdateRemediation(ctx context.Context, tenantID, incidentID string, actions []string, entries []models.DecisionLogEntry) error {
	mu := r.writerLock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	incident, err := r.FindByID(ctx, tenantID, incidentID)
	if err != nil {
		return err
	}

	incident.RecommendedActions = append(incident.RecommendedActions, actions...)
	incident.DecisionLog = append(incident.DecisionLog, entries...)

	// Update through the model so the JSON serializers on both columns apply;
	// a raw column map would hand the driver unserialized structs.
	result := r.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("tenant_id = ? AND id = ?", tenantID, incidentID).
		Select("recommended_actions", "decision_log").
		Updates(incident)
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update incident remediation", result.Error,
			logger.String("incident_id", incidentID),
			logger.String("tenant_id", tenantID),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	return nil
}

// Stats summarizes the tenant partition for the dashboard.
func (r *IncidentRepoImpl) Stats(ctx context.Context, tenantID string) (*repository.IncidentStats, error) {
	stats := &repository.IncidentStats{}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Incident{}).Where("tenant_id = ?", tenantID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	if err := base().Where("archived = ?", false).Count(&stats.Active).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	if err := base().Where("archived = ? AND final_confidence_score >= ?", false, constants.CriticalConfidenceFloor).
		Count(&stats.Critical).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	stats.Archived = stats.Total - stats.Active

	// Health starts at 100 and degrades with open incidents; critical ones
	// weigh five times as much as ordinary ones.
	penalty := float64(stats.Active-stats.Critical)*2 + float64(stats.Critical)*10
	if penalty > 100 {
		penalty = 100
	}
	stats.HealthScore = 100 - penalty
	return stats, nil
}

// MTTR aggregates resolution durations over archived incidents within the
// trailing window. Open incidents never contribute.
func (r *IncidentRepoImpl) MTTR(ctx context.Context, tenantID string, window time.Duration) (*repository.MTTRStats, error) {
	since := time.Now().UTC().Add(-window)

	var incidents []*models.Incident
	err := r.db.WithContext(ctx).
		Select("created_at", "resolved_at", "archived").
		Where("tenant_id = ? AND archived = ? AND resolved_at >= ?", tenantID, true, since).
		Find(&incidents).Error
	if err != nil {
		r.logger.Error(ctx, "MTTR aggregation failed", err, logger.String("tenant_id", tenantID))
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	durations := make([]time.Duration, 0, len(incidents))
	for _, in := range incidents {
		if d, ok := in.TimeToResolve(); ok {
			durations = append(durations, d)
		}
	}
	if len(durations) == 0 {
		return &repository.MTTRStats{}, nil
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	p95Idx := (len(durations)*95 + 99) / 100
	if p95Idx > 0 {
		p95Idx--
	}

	return &repository.MTTRStats{
		Count: len(durations),
		Mean:  sum / time.Duration(len(durations)),
		P95:   durations[p95Idx],
	}, nil
}

// Trends buckets incident counts per UTC day and type within the window.
func (r *IncidentRepoImpl) Trends(ctx context.Context, tenantID string, window time.Duration) ([]repository.TrendBucket, error) {
	since := time.Now().UTC().Add(-window)

	var incidents []*models.Incident
	err := r.db.WithContext(ctx).
		Select("created_at", "type").
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	byDay := make(map[string]map[constants.IncidentType]int64)
	for _, in := range incidents {
		day := in.CreatedAt.UTC().Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = make(map[constants.IncidentType]int64)
		}
		byDay[day][in.Type]++
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	buckets := make([]repository.TrendBucket, 0, len(days))
	for _, day := range days {
		buckets = append(buckets, repository.TrendBucket{Day: day, Counts: byDay[day]})
	}
	return buckets, nil
}
