package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/scancheckout/backend/internal/domain/scan"
	"github.com/scancheckout/backend/internal/infrastructure/persistence/models"
)

// GormScanRepository implements scan.Repository on a SQL database.
type GormScanRepository struct {
	db *gorm.DB
}

// NewGormScanRepository creates a repository over db.
func NewGormScanRepository(db *gorm.DB) *GormScanRepository {
	return &GormScanRepository{db: db}
}

var _ scan.Repository = (*GormScanRepository)(nil)

// Save implements scan.Repository
func (r *GormScanRepository) Save(ctx context.Context, record *scan.Record) error {
	model := models.ScanModelFromDomain(record)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save scan %s: %w", record.ID, err)
	}
	return nil
}

// FindByID implements scan.Repository
func (r *GormScanRepository) FindByID(ctx context.Context, id string) (*scan.Record, error) {
	var model models.ScanModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scan.ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to load scan %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// SaveDetections implements scan.Repository
func (r *GormScanRepository) SaveDetections(ctx context.Context, id string, detections []scan.Detection, modelVersion string) (*scan.Record, error) {
	var updated models.ScanModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			return err
		}
		updated.Detections = models.DetectionsFromDomain(detections)
		updated.ModelVersion = modelVersion
		updated.UpdatedAt = time.Now().UTC()
		return tx.Model(&models.ScanModel{}).Where("id = ?", id).Updates(map[string]any{
			"detections":    updated.Detections,
			"model_version": updated.ModelVersion,
			"updated_at":    updated.UpdatedAt,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scan.ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to save detections for scan %s: %w", id, err)
	}
	return updated.ToDomain(), nil
}
