package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lifeshare/internal/models"
	"lifeshare/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrOnlyDonorsPost     = errors.New("only donors can create resources")
	ErrBloodTypeRequired  = errors.New("blood type is required for blood donations")
	ErrResourceNotFound   = errors.New("resource not found")
	ErrNotResourceOwner   = errors.New("not authorized to modify this resource")
	ErrInvalidResource    = errors.New("resource type, quantity and address are required")
	ErrBadResourceType    = errors.New("resource type must be blood or food")
)

// ResourceInput carries the fields of a donation posting.
type ResourceInput struct {
	Type        models.ResourceType
	BloodType   string
	Quantity    string
	Description string
	Address     string
	ExpiresAt   *time.Time
}

// ResourceService defines the interface for donation posting operations.
type ResourceService interface {
	Create(ctx context.Context, ownerID uint, role models.UserRole, input ResourceInput) (*models.Resource, error)
	ListAvailable(ctx context.Context) ([]models.Resource, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Resource, error)
	Update(ctx context.Context, resourceID, callerID uint, input ResourceInput) (*models.Resource, error)
	Delete(ctx context.Context, resourceID, callerID uint) error
}

type resourceService struct {
	resourceRepo storage.ResourceRepository
}

// NewResourceService creates a new ResourceService instance.
func NewResourceService(resourceRepo storage.ResourceRepository) ResourceService {
	return &resourceService{resourceRepo: resourceRepo}
}

func validateResourceInput(input *ResourceInput) error {
	input.Quantity = strings.TrimSpace(input.Quantity)
	input.Address = strings.TrimSpace(input.Address)
	if input.Type == "" || input.Quantity == "" || input.Address == "" {
		return ErrInvalidResource
	}
	if input.Type != models.BloodResource && input.Type != models.FoodResource {
		return ErrBadResourceType
	}
	if input.Type == models.BloodResource && strings.TrimSpace(input.BloodType) == "" {
		return ErrBloodTypeRequired
	}
	return nil
}

// Create posts a new resource for the donor. New postings start available.
func (s *resourceService) Create(ctx context.Context, ownerID uint, role models.UserRole, input ResourceInput) (*models.Resource, error) {
	if role != models.RoleDonor {
		return nil, ErrOnlyDonorsPost
	}
	if err := validateResourceInput(&input); err != nil {
		return nil, err
	}

	resource := &models.Resource{
		OwnerID:     ownerID,
		Type:        input.Type,
		BloodType:   input.BloodType,
		Quantity:    input.Quantity,
		Description: input.Description,
		Address:     input.Address,
		ExpiresAt:   input.ExpiresAt,
		Status:      models.ResourceStatusAvailable,
	}
	if err := s.resourceRepo.Create(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return resource, nil
}

func (s *resourceService) ListAvailable(ctx context.Context) ([]models.Resource, error) {
	return s.resourceRepo.ListAvailable(ctx)
}

func (s *resourceService) ListByOwner(ctx context.Context, ownerID uint) ([]models.Resource, error) {
	return s.resourceRepo.ListByOwner(ctx, ownerID)
}

// Update edits a posting; only the owner may do so.
func (s *resourceService) Update(ctx context.Context, resourceID, callerID uint, input ResourceInput) (*models.Resource, error) {
	resource, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to load resource %d: %w", resourceID, err)
	}
	if resource.OwnerID != callerID {
		return nil, ErrNotResourceOwner
	}
	if err := validateResourceInput(&input); err != nil {
		return nil, err
	}

	resource.Type = input.Type
	resource.BloodType = input.BloodType
	resource.Quantity = input.Quantity
	resource.Description = input.Description
	resource.Address = input.Address
	resource.ExpiresAt = input.ExpiresAt
	if err := s.resourceRepo.Update(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to update resource %d: %w", resourceID, err)
	}
	return resource, nil
}

// Delete removes a posting; only the owner may do so.
func (s *resourceService) Delete(ctx context.Context, resourceID, callerID uint) error {
	resource, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to load resource %d: %w", resourceID, err)
	}
	if resource.OwnerID != callerID {
		return ErrNotResourceOwner
	}
	return s.resourceRepo.Delete(ctx, resourceID)
}
