package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"lifeshare/internal/config"
	"lifeshare/internal/events"
	"lifeshare/internal/kafka"
	"lifeshare/internal/models"
	"lifeshare/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrOnlyRequesters    = errors.New("only requesters can request resources")
	ErrDuplicateRequest  = errors.New("you already requested this resource")
	ErrRequestNotFound   = errors.New("request not found")
	ErrNotRequestOwner   = errors.New("not authorized to respond to this request")
	ErrRequestNotPending = errors.New("this request has already been decided")
	ErrInvalidDecision   = errors.New("decision must be accepted or declined")
)

// RequestService owns the request lifecycle: creation with duplicate
// prevention, listing, and the donor's accept/decline decision. Accepting a
// request provisions the requester/donor conversation and marks the resource
// non-available; that sequencing is the lifecycle coordination step and lives
// in Decide.
type RequestService interface {
	Create(ctx context.Context, requesterID uint, role models.UserRole, resourceID uint) (*models.Request, error)
	ListForDonor(ctx context.Context, donorID uint) ([]models.Request, error)
	ListForRequester(ctx context.Context, requesterID uint) ([]models.Request, error)
	// Decide applies the donor's decision. On acceptance the returned
	// conversation is the (possibly pre-existing) channel for the pair; it is
	// nil for declines.
	Decide(ctx context.Context, requestID, donorID uint, decision models.RequestStatus) (*models.Request, *models.Conversation, error)
}

type requestService struct {
	requestRepo  storage.RequestRepository
	resourceRepo storage.ResourceRepository
	convoRepo    storage.ConversationRepository
	producer     kafka.MessageProducer
	kafkaCfg     config.KafkaConfig
}

// NewRequestService creates a new RequestService instance.
func NewRequestService(
	requestRepo storage.RequestRepository,
	resourceRepo storage.ResourceRepository,
	convoRepo storage.ConversationRepository,
	producer kafka.MessageProducer,
	kafkaCfg config.KafkaConfig,
) RequestService {
	return &requestService{
		requestRepo:  requestRepo,
		resourceRepo: resourceRepo,
		convoRepo:    convoRepo,
		producer:     producer,
		kafkaCfg:     kafkaCfg,
	}
}

// Create records a requester's claim on a resource. At most one non-terminal
// request may exist per (requester, resource) pair; a declined request frees
// the pair for a fresh attempt.
func (s *requestService) Create(ctx context.Context, requesterID uint, role models.UserRole, resourceID uint) (*models.Request, error) {
	if role != models.RoleRequester {
		return nil, ErrOnlyRequesters
	}

	resource, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to load resource %d: %w", resourceID, err)
	}

	existing, err := s.requestRepo.FindActive(ctx, requesterID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing requests for resource %d: %w", resourceID, err)
	}
	if existing != nil {
		return nil, ErrDuplicateRequest
	}

	request := &models.Request{
		RequesterID: requesterID,
		ResourceID:  resourceID,
		DonorID:     resource.OwnerID, // fixed at creation time
		Status:      models.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.publishRequestEvent(ctx, request)
	return request, nil
}

func (s *requestService) ListForDonor(ctx context.Context, donorID uint) ([]models.Request, error) {
	return s.requestRepo.ListByDonor(ctx, donorID)
}

func (s *requestService) ListForRequester(ctx context.Context, requesterID uint) ([]models.Request, error) {
	return s.requestRepo.ListByRequester(ctx, requesterID)
}

// Decide applies the donor's accept/decline decision.
//
// The conditional status update is the serialization point: of any number of
// concurrent decide calls for one request, exactly one flips pending to a
// decision. The conversation is then derived from participant identity via
// the repository's atomic find-or-create, so retried or duplicated accepts
// converge on the same conversation, and a crash between the status update
// and the conversation creation is recovered by the next accept or access
// re-running find-or-create.
func (s *requestService) Decide(ctx context.Context, requestID, donorID uint, decision models.RequestStatus) (*models.Request, *models.Conversation, error) {
	if !decision.Decided() {
		return nil, nil, ErrInvalidDecision
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, fmt.Errorf("failed to load request %d: %w", requestID, err)
	}

	if request.DonorID != donorID {
		return nil, nil, ErrNotRequestOwner
	}
	if request.Status != models.RequestStatusPending {
		// Accepting an already accepted request is an idempotent retry: the
		// ledger flip may have succeeded while conversation provisioning
		// failed, so re-derive the conversation instead of conflicting.
		if request.Status == models.RequestStatusAccepted && decision == models.RequestStatusAccepted {
			conversation, err := s.provisionAccept(ctx, request)
			if err != nil {
				return nil, nil, err
			}
			return request, conversation, nil
		}
		return nil, nil, ErrRequestNotPending
	}

	won, err := s.requestRepo.UpdateStatusIfPending(ctx, requestID, decision)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update request %d status: %w", requestID, err)
	}
	if !won {
		// A concurrent decision got there first.
		return nil, nil, ErrRequestNotPending
	}
	request.Status = decision

	var conversation *models.Conversation
	if decision == models.RequestStatusAccepted {
		conversation, err = s.provisionAccept(ctx, request)
		if err != nil {
			// The accept is not reported successful without its conversation;
			// the caller retries and lands on the idempotent path above.
			return nil, nil, err
		}
	}

	s.publishRequestEvent(ctx, request)
	return request, conversation, nil
}

// provisionAccept derives the accepted request's conversation and holds the
// resource. Both steps are idempotent, so it is safe to re-run on a retried
// accept.
func (s *requestService) provisionAccept(ctx context.Context, request *models.Request) (*models.Conversation, error) {
	conversation, _, err := s.convoRepo.FindOrCreateByParticipants(ctx, request.RequesterID, request.DonorID)
	if err != nil {
		return nil, fmt.Errorf("failed to provision conversation for request %d: %w", request.ID, err)
	}
	if err := s.resourceRepo.UpdateStatus(ctx, request.ResourceID, models.ResourceStatusPending); err != nil {
		return nil, fmt.Errorf("failed to mark resource %d as pending: %w", request.ResourceID, err)
	}
	return conversation, nil
}

// publishRequestEvent emits the lifecycle event to Kafka. Best-effort: the
// state change is already durable, so a failed publish is only logged.
func (s *requestService) publishRequestEvent(ctx context.Context, request *models.Request) {
	if s.producer == nil {
		return
	}
	event := events.RequestEvent{
		RequestID:   request.ID,
		RequesterID: request.RequesterID,
		DonorID:     request.DonorID,
		ResourceID:  request.ResourceID,
		Status:      request.Status,
		Timestamp:   time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling request event for request %d: %v", request.ID, err)
		return
	}
	key := []byte(fmt.Sprintf("%d", request.ID))
	if err := s.producer.SendMessage(ctx, s.kafkaCfg.RequestEventsTopic, key, payload); err != nil {
		log.Printf("Error publishing request event for request %d: %v", request.ID, err)
	}
}
