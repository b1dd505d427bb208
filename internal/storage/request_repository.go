package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lifeshare/internal/models"
)

// RequestRepository defines the interface for resource request data operations.
type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id uint) (*models.Request, error)
	// FindActive returns the non-terminal (pending or accepted) request for the
	// (requester, resource) pair, or nil if none exists.
	FindActive(ctx context.Context, requesterID, resourceID uint) (*models.Request, error)
	ListByDonor(ctx context.Context, donorID uint) ([]models.Request, error)
	ListByRequester(ctx context.Context, requesterID uint) ([]models.Request, error)
	// UpdateStatusIfPending transitions the request to status only if it is
	// still pending. Returns false when another decision already won; this is
	// the per-request serialization point for concurrent decide calls.
	UpdateStatusIfPending(ctx context.Context, id uint, status models.RequestStatus) (bool, error)
}

type gormRequestRepository struct {
	db *gorm.DB
}

// NewGormRequestRepository creates a new GORM-backed RequestRepository.
func NewGormRequestRepository(db *gorm.DB) RequestRepository {
	return &gormRequestRepository{db: db}
}

func (r *gormRequestRepository) Create(ctx context.Context, request *models.Request) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *gormRequestRepository) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	var request models.Request
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormRequestRepository) FindActive(ctx context.Context, requesterID, resourceID uint) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND resource_id = ?", requesterID, resourceID).
		Where("status IN ?", []models.RequestStatus{models.RequestStatusPending, models.RequestStatusAccepted}).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no active request is not an error here
		}
		return nil, err
	}
	return &request, nil
}

// ListByDonor returns all requests aimed at the donor, newest first, with the
// resource and the requester's identity denormalized for display.
func (r *gormRequestRepository) ListByDonor(ctx context.Context, donorID uint) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("created_at DESC").
		Preload("Resource").
		Preload("Requester").
		Find(&requests).Error
	return requests, err
}

func (r *gormRequestRepository) ListByRequester(ctx context.Context, requesterID uint) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Preload("Resource").
		Preload("Donor").
		Find(&requests).Error
	return requests, err
}

func (r *gormRequestRepository) UpdateStatusIfPending(ctx context.Context, id uint, status models.RequestStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
