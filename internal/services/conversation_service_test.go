package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"lifeshare/internal/events"
	"lifeshare/internal/services"
)

type conversationServiceFixture struct {
	convos   *fakeConversationRepo
	messages *fakeMessageRepo
	producer *fakeProducer
	svc      services.ConversationService
}

func newConversationServiceFixture() *conversationServiceFixture {
	f := &conversationServiceFixture{
		convos:   newFakeConversationRepo(),
		messages: newFakeMessageRepo(),
		producer: &fakeProducer{},
	}
	f.svc = services.NewConversationService(f.convos, f.messages, f.producer, testKafkaCfg)
	return f
}

func TestFindOrCreateIsOrderInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()

	first, created, err := f.svc.FindOrCreate(ctx, 7, 3)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	require.Equal(t, uint(3), first.ParticipantLowID)
	require.Equal(t, uint(7), first.ParticipantHighID)
}

func TestAppendMessagePersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()
	conversation, _, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)

	message, err := f.svc.AppendMessage(ctx, conversation.ID, 3, "  hello there  ")
	require.NoError(t, err)
	require.Equal(t, "hello there", message.Text)
	require.Equal(t, uint(3), message.SenderID)
	require.NotZero(t, message.ID)

	records := f.producer.byTopic(testKafkaCfg.MessagesTopic)
	require.Len(t, records, 1)
	require.Equal(t, "1", string(records[0].Key))

	var event events.MessageEvent
	require.NoError(t, json.Unmarshal(records[0].Payload, &event))
	require.Equal(t, events.TypeNewMessage, event.Type)
	require.Equal(t, conversation.ID, event.ConversationID)
	require.Equal(t, message.Text, event.Message.Text)
}

func TestAppendMessageValidation(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()
	conversation, _, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)

	_, err = f.svc.AppendMessage(ctx, conversation.ID, 3, "   ")
	require.ErrorIs(t, err, services.ErrEmptyMessage)

	_, err = f.svc.AppendMessage(ctx, 999, 3, "hi")
	require.ErrorIs(t, err, services.ErrConversationNotFound)

	_, err = f.svc.AppendMessage(ctx, conversation.ID, 99, "hi")
	require.ErrorIs(t, err, services.ErrNotParticipant)
}

func TestAppendMessageSurvivesProducerFailure(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()
	conversation, _, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)

	f.producer.sendErr = context.DeadlineExceeded
	message, err := f.svc.AppendMessage(ctx, conversation.ID, 3, "hello")
	require.NoError(t, err)

	stored, err := f.messages.GetLastByConversation(ctx, conversation.ID)
	require.NoError(t, err)
	require.Equal(t, message.ID, stored.ID)
}

func TestGetForParticipantHidesExistence(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()
	conversation, _, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)

	// A non-participant gets the same error as for a missing conversation.
	_, errOutsider := f.svc.GetForParticipant(ctx, conversation.ID, 99)
	_, errMissing := f.svc.GetForParticipant(ctx, 999, 3)
	require.ErrorIs(t, errOutsider, services.ErrConversationNotFound)
	require.ErrorIs(t, errMissing, services.ErrConversationNotFound)
	require.Equal(t, errMissing.Error(), errOutsider.Error())
}

func TestGetForParticipantReturnsHistoryInOrder(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()
	conversation, _, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)

	_, err = f.svc.AppendMessage(ctx, conversation.ID, 3, "first")
	require.NoError(t, err)
	_, err = f.svc.AppendMessage(ctx, conversation.ID, 7, "second")
	require.NoError(t, err)

	// Mirror persisted messages into the conversation fake's preload store.
	stored, err := f.messages.ListByConversation(ctx, conversation.ID)
	require.NoError(t, err)
	f.convos.messagesByID[conversation.ID] = stored

	loaded, err := f.svc.GetForParticipant(ctx, conversation.ID, 7)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	require.Equal(t, "first", loaded.Messages[0].Text)
	require.Equal(t, "second", loaded.Messages[1].Text)
}

func TestListForParticipantIncludesLastMessage(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()
	withSeven, _, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)
	_, _, err = f.svc.FindOrCreate(ctx, 3, 8)
	require.NoError(t, err)
	_, _, err = f.svc.FindOrCreate(ctx, 8, 9)
	require.NoError(t, err)

	_, err = f.svc.AppendMessage(ctx, withSeven.ID, 7, "ping")
	require.NoError(t, err)
	_, err = f.svc.AppendMessage(ctx, withSeven.ID, 3, "pong")
	require.NoError(t, err)

	previews, err := f.svc.ListForParticipant(ctx, 3)
	require.NoError(t, err)
	require.Len(t, previews, 2)

	byID := make(map[uint]services.ConversationPreview, len(previews))
	for _, preview := range previews {
		byID[preview.ID] = preview
	}
	require.Equal(t, "pong", byID[withSeven.ID].LastMessage.Text)
	for id, preview := range byID {
		if id != withSeven.ID {
			require.Nil(t, preview.LastMessage)
		}
	}

	// Each preview names the other participant, never the caller.
	require.NotNil(t, byID[withSeven.ID].Counterpart)
	require.Equal(t, uint(7), byID[withSeven.ID].Counterpart.ID)
	for _, preview := range byID {
		require.NotEqual(t, uint(3), preview.Counterpart.ID)
	}
}

func TestIsParticipant(t *testing.T) {
	ctx := context.Background()
	f := newConversationServiceFixture()
	conversation, _, err := f.svc.FindOrCreate(ctx, 3, 7)
	require.NoError(t, err)

	ok, err := f.svc.IsParticipant(ctx, conversation.ID, 3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.svc.IsParticipant(ctx, conversation.ID, 99)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.svc.IsParticipant(ctx, 999, 3)
	require.NoError(t, err)
	require.False(t, ok)
}
