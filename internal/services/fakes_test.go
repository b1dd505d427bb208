package services_test

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"lifeshare/internal/models"
)

// In-memory repository fakes. They mirror the stores' contracts closely
// enough for service-level tests: IDs are assigned on create, missing rows
// surface gorm.ErrRecordNotFound, and the conversation fake keeps the
// one-conversation-per-pair guarantee.

type fakeRequestRepo struct {
	mu       sync.Mutex
	nextID   uint
	requests map[uint]*models.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{nextID: 1, requests: make(map[uint]*models.Request)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, request *models.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request.ID = f.nextID
	f.nextID++
	cp := *request
	f.requests[request.ID] = &cp
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *request
	return &cp, nil
}

func (f *fakeRequestRepo) FindActive(ctx context.Context, requesterID, resourceID uint) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, request := range f.requests {
		if request.RequesterID == requesterID && request.ResourceID == resourceID &&
			(request.Status == models.RequestStatusPending || request.Status == models.RequestStatusAccepted) {
			cp := *request
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRequestRepo) ListByDonor(ctx context.Context, donorID uint) ([]models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Request
	for _, request := range f.requests {
		if request.DonorID == donorID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByRequester(ctx context.Context, requesterID uint) ([]models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Request
	for _, request := range f.requests {
		if request.RequesterID == requesterID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatusIfPending(ctx context.Context, id uint, status models.RequestStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != models.RequestStatusPending {
		return false, nil
	}
	request.Status = status
	return true, nil
}

type fakeResourceRepo struct {
	mu        sync.Mutex
	nextID    uint
	resources map[uint]*models.Resource
}

func newFakeResourceRepo() *fakeResourceRepo {
	return &fakeResourceRepo{nextID: 1, resources: make(map[uint]*models.Resource)}
}

func (f *fakeResourceRepo) Create(ctx context.Context, resource *models.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	resource.ID = f.nextID
	f.nextID++
	cp := *resource
	f.resources[resource.ID] = &cp
	return nil
}

func (f *fakeResourceRepo) GetByID(ctx context.Context, id uint) (*models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resource, ok := f.resources[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *resource
	return &cp, nil
}

func (f *fakeResourceRepo) ListAvailable(ctx context.Context) ([]models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Resource
	for _, resource := range f.resources {
		if resource.Status == models.ResourceStatusAvailable {
			out = append(out, *resource)
		}
	}
	return out, nil
}

func (f *fakeResourceRepo) ListByOwner(ctx context.Context, ownerID uint) ([]models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Resource
	for _, resource := range f.resources {
		if resource.OwnerID == ownerID {
			out = append(out, *resource)
		}
	}
	return out, nil
}

func (f *fakeResourceRepo) Update(ctx context.Context, resource *models.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.resources[resource.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *resource
	f.resources[resource.ID] = &cp
	return nil
}

func (f *fakeResourceRepo) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resources, id)
	return nil
}

func (f *fakeResourceRepo) UpdateStatus(ctx context.Context, id uint, status models.ResourceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	resource, ok := f.resources[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	resource.Status = status
	return nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	nextID        uint
	conversations map[uint]*models.Conversation
	messagesByID  map[uint][]models.Message
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		nextID:        1,
		conversations: make(map[uint]*models.Conversation),
		messagesByID:  make(map[uint][]models.Message),
	}
}

func (f *fakeConversationRepo) FindOrCreateByParticipants(ctx context.Context, a, b uint) (*models.Conversation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair := models.Conversation{ParticipantLowID: a, ParticipantHighID: b}
	pair.EnsureCanonicalOrder()
	for _, conversation := range f.conversations {
		if conversation.ParticipantLowID == pair.ParticipantLowID && conversation.ParticipantHighID == pair.ParticipantHighID {
			cp := *conversation
			return &cp, false, nil
		}
	}
	pair.ID = f.nextID
	f.nextID++
	// Participants as the store would preload them.
	pair.ParticipantLow = models.User{BaseModel: models.BaseModel{ID: pair.ParticipantLowID}}
	pair.ParticipantHigh = models.User{BaseModel: models.BaseModel{ID: pair.ParticipantHighID}}
	cp := pair
	f.conversations[pair.ID] = &cp
	out := pair
	return &out, true, nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conversation, ok := f.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *conversation
	return &cp, nil
}

func (f *fakeConversationRepo) GetByIDWithMessages(ctx context.Context, id uint) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conversation, ok := f.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *conversation
	cp.Messages = append([]models.Message(nil), f.messagesByID[id]...)
	return &cp, nil
}

func (f *fakeConversationRepo) ListByParticipant(ctx context.Context, userID uint) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Conversation
	for _, conversation := range f.conversations {
		if conversation.HasParticipant(userID) {
			out = append(out, *conversation)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) Touch(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conversation, ok := f.conversations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	conversation.UpdatedAt = time.Now()
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   uint
	messages []models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{nextID: 1}
}

func (f *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	message.ID = f.nextID
	f.nextID++
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, message := range f.messages {
		if message.ConversationID == conversationID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) GetLastByConversation(ctx context.Context, conversationID uint) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].ConversationID == conversationID {
			cp := f.messages[i]
			return &cp, nil
		}
	}
	return nil, nil
}

type producedRecord struct {
	Topic   string
	Key     []byte
	Payload []byte
}

type fakeProducer struct {
	mu      sync.Mutex
	sendErr error
	records []producedRecord
}

func (f *fakeProducer) SendMessage(ctx context.Context, topic string, key []byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.records = append(f.records, producedRecord{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (f *fakeProducer) Close() {}

func (f *fakeProducer) byTopic(topic string) []producedRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []producedRecord
	for _, record := range f.records {
		if record.Topic == topic {
			out = append(out, record)
		}
	}
	return out
}
