package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"lifeshare/internal/config"
	"lifeshare/internal/models"
	"lifeshare/internal/services"
)

var testKafkaCfg = config.KafkaConfig{
	MessagesTopic:      "test-messages",
	RequestEventsTopic: "test-request-events",
}

type requestServiceFixture struct {
	requests  *fakeRequestRepo
	resources *fakeResourceRepo
	convos    *fakeConversationRepo
	producer  *fakeProducer
	svc       services.RequestService
}

func newRequestServiceFixture() *requestServiceFixture {
	f := &requestServiceFixture{
		requests:  newFakeRequestRepo(),
		resources: newFakeResourceRepo(),
		convos:    newFakeConversationRepo(),
		producer:  &fakeProducer{},
	}
	f.svc = services.NewRequestService(f.requests, f.resources, f.convos, f.producer, testKafkaCfg)
	return f
}

func (f *requestServiceFixture) seedResource(t *testing.T, ownerID uint) *models.Resource {
	t.Helper()
	resource := &models.Resource{
		OwnerID:  ownerID,
		Type:     models.BloodResource,
		Quantity: "450ml",
		Address:  "City Hospital",
		Status:   models.ResourceStatusAvailable,
	}
	require.NoError(t, f.resources.Create(context.Background(), resource))
	return resource
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, request.Status)
	require.Equal(t, uint(20), request.RequesterID)
	require.Equal(t, uint(10), request.DonorID)
	require.Equal(t, resource.ID, request.ResourceID)

	events := f.producer.byTopic(testKafkaCfg.RequestEventsTopic)
	require.Len(t, events, 1)
}

func TestCreateRequestDonorRoleRejected(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	_, err := f.svc.Create(ctx, 20, models.RoleDonor, resource.ID)
	require.ErrorIs(t, err, services.ErrOnlyRequesters)
}

func TestCreateRequestMissingResource(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()

	_, err := f.svc.Create(ctx, 20, models.RoleRequester, 999)
	require.ErrorIs(t, err, services.ErrResourceNotFound)
}

func TestCreateRequestDuplicateBlocked(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	_, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.ErrorIs(t, err, services.ErrDuplicateRequest)

	// A different requester is not blocked.
	_, err = f.svc.Create(ctx, 21, models.RoleRequester, resource.ID)
	require.NoError(t, err)
}

func TestDeclinedRequestFreesThePair(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Decide(ctx, request.ID, 10, models.RequestStatusDeclined)
	require.NoError(t, err)

	// The requester may try again after a decline.
	_, err = f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)
}

func TestDecideAcceptOpensConversationAndHoldsResource(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	decided, conversation, err := f.svc.Decide(ctx, request.ID, 10, models.RequestStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusAccepted, decided.Status)
	require.NotNil(t, conversation)
	require.True(t, conversation.HasParticipant(10))
	require.True(t, conversation.HasParticipant(20))

	updated, err := f.resources.GetByID(ctx, resource.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResourceStatusPending, updated.Status)
}

func TestDecideDeclineOpensNoConversation(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	decided, conversation, err := f.svc.Decide(ctx, request.ID, 10, models.RequestStatusDeclined)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusDeclined, decided.Status)
	require.Nil(t, conversation)

	// Declining leaves the resource listed.
	updated, err := f.resources.GetByID(ctx, resource.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResourceStatusAvailable, updated.Status)
}

func TestDecideOnlyResourceOwner(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Decide(ctx, request.ID, 99, models.RequestStatusAccepted)
	require.ErrorIs(t, err, services.ErrNotRequestOwner)
}

func TestDecideRejectsInvalidStatus(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	for _, status := range []models.RequestStatus{models.RequestStatusPending, models.RequestStatusCompleted, "bogus"} {
		_, _, err = f.svc.Decide(ctx, request.ID, 10, status)
		require.ErrorIs(t, err, services.ErrInvalidDecision)
	}
}

func TestDecideSecondDecisionConflicts(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Decide(ctx, request.ID, 10, models.RequestStatusAccepted)
	require.NoError(t, err)

	_, _, err = f.svc.Decide(ctx, request.ID, 10, models.RequestStatusDeclined)
	require.ErrorIs(t, err, services.ErrRequestNotPending)
}

func TestDecideMissingRequest(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()

	_, _, err := f.svc.Decide(ctx, 42, 10, models.RequestStatusAccepted)
	require.ErrorIs(t, err, services.ErrRequestNotFound)
}

func TestDecideAcceptTwiceReusesConversation(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	first := f.seedResource(t, 10)
	second := f.seedResource(t, 10)

	reqA, err := f.svc.Create(ctx, 20, models.RoleRequester, first.ID)
	require.NoError(t, err)
	reqB, err := f.svc.Create(ctx, 20, models.RoleRequester, second.ID)
	require.NoError(t, err)

	_, convoA, err := f.svc.Decide(ctx, reqA.ID, 10, models.RequestStatusAccepted)
	require.NoError(t, err)
	_, convoB, err := f.svc.Decide(ctx, reqB.ID, 10, models.RequestStatusAccepted)
	require.NoError(t, err)

	// Same pair, same conversation, regardless of which resource triggered it.
	require.Equal(t, convoA.ID, convoB.ID)
}

// flakyConvoRepo fails a configured number of FindOrCreateByParticipants
// calls before delegating, to exercise the accept recovery path.
type flakyConvoRepo struct {
	*fakeConversationRepo
	failures int
}

func (f *flakyConvoRepo) FindOrCreateByParticipants(ctx context.Context, a, b uint) (*models.Conversation, bool, error) {
	if f.failures > 0 {
		f.failures--
		return nil, false, errors.New("connection reset")
	}
	return f.fakeConversationRepo.FindOrCreateByParticipants(ctx, a, b)
}

func TestDecideAcceptRetryRecoversConversation(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	flaky := &flakyConvoRepo{fakeConversationRepo: f.convos, failures: 1}
	svc := services.NewRequestService(f.requests, f.resources, flaky, f.producer, testKafkaCfg)
	resource := f.seedResource(t, 10)

	request, err := svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	// Conversation provisioning dies after the ledger flip wins.
	_, _, err = svc.Decide(ctx, request.ID, 10, models.RequestStatusAccepted)
	require.Error(t, err)

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusAccepted, stored.Status)

	// The retried accept is idempotent: it re-derives the conversation and
	// holds the resource instead of reporting a conflict.
	decided, conversation, err := svc.Decide(ctx, request.ID, 10, models.RequestStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusAccepted, decided.Status)
	require.NotNil(t, conversation)
	require.True(t, conversation.HasParticipant(10))
	require.True(t, conversation.HasParticipant(20))

	held, err := f.resources.GetByID(ctx, resource.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResourceStatusPending, held.Status)

	// The decline retry on an accepted request still conflicts, and a
	// stranger still cannot trigger the recovery.
	_, _, err = svc.Decide(ctx, request.ID, 10, models.RequestStatusDeclined)
	require.ErrorIs(t, err, services.ErrRequestNotPending)
	_, _, err = svc.Decide(ctx, request.ID, 99, models.RequestStatusAccepted)
	require.ErrorIs(t, err, services.ErrNotRequestOwner)
}

func TestRequestCreatedDespiteProducerFailure(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	f.producer.sendErr = context.DeadlineExceeded
	resource := f.seedResource(t, 10)

	request, err := f.svc.Create(ctx, 20, models.RoleRequester, resource.ID)
	require.NoError(t, err)

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, stored.Status)
}
