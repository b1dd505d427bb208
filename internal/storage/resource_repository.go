package storage

import (
	"context"

	"gorm.io/gorm"

	"lifeshare/internal/models"
)

// ResourceRepository defines the interface for resource posting data operations.
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id uint) (*models.Resource, error)
	ListAvailable(ctx context.Context) ([]models.Resource, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Resource, error)
	Update(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, id uint) error
	UpdateStatus(ctx context.Context, id uint, status models.ResourceStatus) error
}

type gormResourceRepository struct {
	db *gorm.DB
}

// NewGormResourceRepository creates a new GORM-backed ResourceRepository.
func NewGormResourceRepository(db *gorm.DB) ResourceRepository {
	return &gormResourceRepository{db: db}
}

func (r *gormResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *gormResourceRepository) GetByID(ctx context.Context, id uint) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

// ListAvailable returns all postings open for requests, newest first.
func (r *gormResourceRepository) ListAvailable(ctx context.Context) ([]models.Resource, error) {
	var resources []models.Resource
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ResourceStatusAvailable).
		Order("created_at DESC").
		Preload("Owner").
		Find(&resources).Error
	return resources, err
}

func (r *gormResourceRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Resource, error) {
	var resources []models.Resource
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&resources).Error
	return resources, err
}

func (r *gormResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	return r.db.WithContext(ctx).Save(resource).Error
}

func (r *gormResourceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Resource{}, id).Error
}

func (r *gormResourceRepository) UpdateStatus(ctx context.Context, id uint, status models.ResourceStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("id = ?", id).
		Update("status", status).Error
}
