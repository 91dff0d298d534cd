// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead,
// Provider and TaskRun models used by the lead-routing scaffold and the
// refresh pipeline's run log.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// CreateLead inserts a new Lead row in status NEW, assigning a UUID primary
// key when unset.
func CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = domain.LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// ListUnroutedLeads returns NEW leads with no provider assigned, oldest first,
// capped at limit rows.
func ListUnroutedLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Where("status = ? AND provider_id IS NULL", domain.LeadStatusNew).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// AssignLead attaches a provider to a lead and moves it to CONTACTED.
// Returns ErrNotFound when the lead no longer exists.
func AssignLead(ctx context.Context, db *gorm.DB, leadID, providerID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"provider_id": providerID,
			"status":      domain.LeadStatusContacted,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExpireStaleLeads moves NEW and CONTACTED leads created before cutoff to
// EXPIRED and returns how many rows changed. A contacted lead that never
// qualifies ages out the same way an unrouted one does.
func ExpireStaleLeads(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("status IN ? AND created_at < ?", []string{domain.LeadStatusNew, domain.LeadStatusContacted}, cutoff).
		Update("status", domain.LeadStatusExpired)
	return res.RowsAffected, res.Error
}

// ListBillableLeads returns QUALIFIED leads that have a provider and have not
// been billed yet.
func ListBillableLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Where("status = ? AND provider_id IS NOT NULL AND is_billed = ?", domain.LeadStatusQualified, false).
		Order("qualified_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkLeadBilled stamps a lead as billed for the given amount.
func MarkLeadBilled(ctx context.Context, db *gorm.DB, leadID string, amount float64) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ? AND is_billed = ?", leadID, false).
		Updates(map[string]any{
			"is_billed":     true,
			"billed_at":     now,
			"amount_billed": amount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActiveProviders returns every ACTIVE provider.
func ListActiveProviders(ctx context.Context, db *gorm.DB) ([]domain.Provider, error) {
	var out []domain.Provider
	err := db.WithContext(ctx).
		Where("status = ?", domain.ProviderStatusActive).
		Find(&out).Error
	return out, err
}

// GetProvider fetches a provider by ID, or ErrNotFound.
func GetProvider(ctx context.Context, db *gorm.DB, id string) (*domain.Provider, error) {
	var p domain.Provider
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// StartTaskRun inserts a RUNNING TaskRun row for the named task and tier.
func StartTaskRun(ctx context.Context, db *gorm.DB, taskName, tier string) (*domain.TaskRun, error) {
	r := &domain.TaskRun{
		ID:        uuid.NewString(),
		TaskName:  taskName,
		Tier:      tier,
		Status:    domain.TaskRunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// FinishTaskRun stamps a TaskRun with its terminal status and counters.
func FinishTaskRun(ctx context.Context, db *gorm.DB, id, status string, refreshed, errored int, cause string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.TaskRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"refreshed":   refreshed,
			"errored":     errored,
			"error":       cause,
			"finished_at": now,
		}).Error
}
