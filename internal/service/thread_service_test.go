package service

import (
	"context"
	"testing"

	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveThreadIsolatesCounterparties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, model.ListingTypeGood)

	_, err := f.messages.Send(ctx, buyer, l.ID, "", "B1 here", "")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, buyer2, l.ID, "", "B2 here", "")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, seller, l.ID, buyer, "Hi B1", "")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, seller, l.ID, buyer2, "Hi B2", "")
	require.NoError(t, err)

	cases := []struct {
		viewer, declared, counterparty string
		bodies                         []string
	}{
		{seller, buyer, buyer, []string{"B1 here", "Hi B1"}},
		{seller, buyer2, buyer2, []string{"B2 here", "Hi B2"}},
		{buyer, "", seller, []string{"B1 here", "Hi B1"}},
		// a buyer cannot peek into another buyer's thread by declaring them
		{buyer, buyer2, seller, []string{"B1 here", "Hi B1"}},
		{buyer2, buyer, seller, []string{"B2 here", "Hi B2"}},
	}
	for _, c := range cases {
		th, err := f.threads.ResolveThread(ctx, c.viewer, l.ID, c.declared)
		require.NoError(t, err)
		assert.Equal(t, c.counterparty, th.CounterpartyUID)
		var bodies []string
		for _, m := range th.Messages {
			assert.True(t, m.Involves(c.viewer, th.CounterpartyUID))
			bodies = append(bodies, m.Body)
		}
		assert.Equal(t, c.bodies, bodies)
	}

	_, err = f.threads.ResolveThread(ctx, seller, l.ID, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.threads.ResolveThread(ctx, buyer, 777, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListInboxOneEntryPerThread(t *testing.T) {
	profiles := stubProfiles{
		buyer: {UID: buyer, DisplayName: "Bea", Verified: true},
	}
	f := newFixtureWith(t, nil, profiles)
	ctx := context.Background()
	l := f.listing(t, model.ListingTypeGood)
	other := f.listing(t, model.ListingTypeService)

	send := func(viewer string, listingID uint64, with, body string) {
		t.Helper()
		_, err := f.messages.Send(ctx, viewer, listingID, with, body, "")
		require.NoError(t, err)
	}
	send(buyer, l.ID, "", "B1 first")
	send(buyer2, l.ID, "", "B2 first")
	send(seller, l.ID, buyer, "reply to B1")
	send(buyer2, l.ID, "", "B2 last")
	send(buyer, other.ID, "", "B1 on the service")

	inbox, err := f.threads.ListInbox(ctx, seller)
	require.NoError(t, err)
	require.Len(t, inbox, 3)

	// newest thread first
	assert.Equal(t, ThreadKey{ListingID: other.ID, CounterpartyUID: buyer}, inbox[0].Key)
	assert.Equal(t, "B1 on the service", inbox[0].LastMessage.Body)
	assert.Equal(t, ThreadKey{ListingID: l.ID, CounterpartyUID: buyer2}, inbox[1].Key)
	assert.Equal(t, "B2 last", inbox[1].LastMessage.Body)
	assert.Equal(t, ThreadKey{ListingID: l.ID, CounterpartyUID: buyer}, inbox[2].Key)
	assert.Equal(t, "reply to B1", inbox[2].LastMessage.Body)
	assert.Equal(t, "Desk lamp", inbox[2].ListingTitle)
	assert.Equal(t, model.ListingStatusActive, inbox[2].ListingStatus)

	// profile lookups are best effort
	require.NotNil(t, inbox[0].Counterparty)
	assert.Equal(t, "Bea", inbox[0].Counterparty.DisplayName)
	assert.Nil(t, inbox[1].Counterparty)

	buyerInbox, err := f.threads.ListInbox(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, buyerInbox, 2)
	for _, e := range buyerInbox {
		assert.Equal(t, seller, e.Key.CounterpartyUID)
	}
}

func TestResolveCounterparty(t *testing.T) {
	l := &model.Listing{SellerUID: seller}
	tests := []struct {
		name     string
		viewer   string
		declared string
		want     string
		wantErr  bool
	}{
		{"buyer gets seller", buyer, "", seller, false},
		{"buyer declaration ignored", buyer, buyer2, seller, false},
		{"seller picks buyer", seller, buyer, buyer, false},
		{"seller must declare", seller, "", "", true},
		{"seller cannot pick self", seller, seller, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCounterparty(l, tt.viewer, tt.declared)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

var _ profile.Provider = stubProfiles{}

func TestListInboxKeepsNewestThreads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.threads.(*threadService).inboxLimit = 2
	a := f.listing(t, model.ListingTypeGood)
	b := f.listing(t, model.ListingTypeGood)

	send := func(viewer string, listingID uint64, with, body string) {
		t.Helper()
		_, err := f.messages.Send(ctx, viewer, listingID, with, body, "")
		require.NoError(t, err)
	}
	send(buyer, a.ID, "", "oldest thread")
	send(buyer2, a.ID, "", "middle thread")
	send(seller, a.ID, buyer2, "middle thread, seller replies")
	send(buyer, b.ID, "", "newest thread")
	for i := 0; i < 5; i++ {
		send(seller, b.ID, buyer, "busy")
	}

	inbox, err := f.threads.ListInbox(ctx, seller)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, ThreadKey{ListingID: b.ID, CounterpartyUID: buyer}, inbox[0].Key)
	assert.Equal(t, "busy", inbox[0].LastMessage.Body)
	assert.Equal(t, ThreadKey{ListingID: a.ID, CounterpartyUID: buyer2}, inbox[1].Key)
	assert.Equal(t, "middle thread, seller replies", inbox[1].LastMessage.Body)
}
