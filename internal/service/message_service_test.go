package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendThenListRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, model.ListingTypeGood)

	bodies := []string{"Is it still available?", "Yes!", "Can you do 20?"}
	senders := []string{buyer, seller, buyer}
	var appended []uint64
	for i, body := range bodies {
		receiver := seller
		if senders[i] == seller {
			receiver = buyer
		}
		m, err := f.messages.Append(ctx, l.ID, senders[i], receiver, body, "")
		require.NoError(t, err)
		appended = append(appended, m.ID)
	}

	msgs, err := f.messages.ListMessages(ctx, l.ID, seller, buyer)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, appended[i], m.ID)
		assert.Equal(t, bodies[i], m.Body)
	}

	// argument order does not matter
	reversed, err := f.messages.ListMessages(ctx, l.ID, buyer, seller)
	require.NoError(t, err)
	require.Len(t, reversed, len(msgs))
	for i := range msgs {
		assert.Equal(t, msgs[i].ID, reversed[i].ID)
	}
	assert.Len(t, f.publisher.published(), 3)
}

func TestAppendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, model.ListingTypeGood)

	tests := []struct {
		name             string
		sender, receiver string
		body, ref        string
	}{
		{"empty body", buyer, seller, "", ""},
		{"whitespace body", buyer, seller, "  \n\t", ""},
		{"self message", buyer, buyer, "hi", ""},
		{"missing sender", "", seller, "hi", ""},
		{"missing receiver", buyer, "", "hi", ""},
		{"bad client ref", buyer, seller, "hi", "not-a-uuid"},
		{"too long", buyer, seller, strings.Repeat("a", maxBodyLength+1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Append(ctx, l.ID, tt.sender, tt.receiver, tt.body, tt.ref)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := f.messages.Append(ctx, 4242, buyer, seller, "hi", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendClientRefReturnsOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, model.ListingTypeGood)
	ref := uuid.NewString()

	first, err := f.messages.Append(ctx, l.ID, buyer, seller, "Hello", ref)
	require.NoError(t, err)
	second, err := f.messages.Append(ctx, l.ID, buyer, seller, "Hello", ref)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	msgs, err := f.messages.ListMessages(ctx, l.ID, buyer, seller)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// the same ref aimed at another thread is a client bug
	other := f.listing(t, model.ListingTypeGood)
	_, err = f.messages.Append(ctx, other.ID, buyer, seller, "Hello", ref)
	assert.ErrorIs(t, err, ErrConflict)

	// refs are scoped per sender
	_, err = f.messages.Append(ctx, l.ID, seller, buyer, "Hi back", ref)
	assert.NoError(t, err)
}

func TestSendResolvesCounterparty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, model.ListingTypeGood)

	// a buyer's declared counterparty is ignored
	m, err := f.messages.Send(ctx, buyer, l.ID, buyer2, "Interested!", "")
	require.NoError(t, err)
	assert.Equal(t, seller, m.ReceiverUID)

	m, err = f.messages.Send(ctx, seller, l.ID, buyer, "Great", "")
	require.NoError(t, err)
	assert.Equal(t, buyer, m.ReceiverUID)

	_, err = f.messages.Send(ctx, seller, l.ID, "", "To whom?", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.messages.Send(ctx, seller, l.ID, seller, "Me", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.messages.Send(ctx, buyer, l.ID, "", model.SystemPrefix+"Deal Sealed! ✅", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.messages.Send(ctx, buyer, l.ID, "", "SYSTEM: fake", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.messages.Send(ctx, "", l.ID, "", "hi", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAppendClientRefAfterDeleteIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, model.ListingTypeGood)
	ref := uuid.NewString()

	_, err := f.messages.Append(ctx, l.ID, buyer, seller, "Still available?", ref)
	require.NoError(t, err)
	f.fire(t, TransitionRequest{ListingID: l.ID, ActorUID: seller, Kind: TransitionDelete})
	before := len(f.publisher.published())

	_, err = f.messages.Append(ctx, l.ID, buyer, seller, "Still available?", ref)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, f.publisher.published(), before)
}

func TestAppendCountsCharacters(t *testing.T) {
	f := newFixture(t)
	l := f.listing(t, model.ListingTypeGood)

	_, err := f.messages.Append(context.Background(), l.ID, buyer, seller, strings.Repeat("é", maxBodyLength), "")
	assert.NoError(t, err)
}
