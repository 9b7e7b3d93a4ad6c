package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/profile"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/testutil"
	"gorm.io/gorm"
)

const (
	seller = "seller-s"
	buyer  = "buyer-b"
	buyer2 = "buyer-b2"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []model.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg model.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) published() []model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Message(nil), p.msgs...)
}

type failingRelay struct{}

func (failingRelay) Announce(context.Context, uint64, string, string, string) error {
	return dependencyError("failed to post trade update", errors.New("relay down"))
}

type stubProfiles map[string]*profile.Profile

func (s stubProfiles) Get(_ context.Context, uid string) (*profile.Profile, error) {
	p, ok := s[uid]
	if !ok {
		return nil, errors.New("no such user")
	}
	return p, nil
}

type fixture struct {
	db        *gorm.DB
	repos     *repository.Repositories
	publisher *recordingPublisher
	listings  ListingService
	messages  MessageService
	threads   ThreadService
	status    StatusService
	txs       TransactionService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil, nil)
}

// newFixtureWith builds the services on a fresh database. A nil relay means
// the real one posting through the message service.
func newFixtureWith(t *testing.T, relay NotificationRelay, profiles profile.Provider) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	pub := &recordingPublisher{}
	messages := NewMessageService(repos.Messages, repos.Listings, pub, nil)
	if relay == nil {
		relay = NewNotificationRelay(messages, nil)
	}
	return &fixture{
		db:        db,
		repos:     repos,
		publisher: pub,
		listings:  NewListingService(repos.Listings),
		messages:  messages,
		threads:   NewThreadService(repos.Messages, repos.Listings, profiles),
		status:    NewStatusService(repos, repos, NewTransactionRecorder(nil), relay, nil),
		txs:       NewTransactionService(repos.Transactions),
	}
}

func (f *fixture) listing(t *testing.T, typ model.ListingType) *model.Listing {
	t.Helper()
	return testutil.CreateListing(t, f.db, seller, typ, 2500)
}

func (f *fixture) fire(t *testing.T, req TransitionRequest) *TransitionResult {
	t.Helper()
	res, err := f.status.Fire(context.Background(), req)
	if err != nil {
		t.Fatalf("fire %s: %v", req.Kind, err)
	}
	return res
}

func (f *fixture) reload(t *testing.T, id uint64) *model.Listing {
	t.Helper()
	l, err := f.repos.Listings.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	return l
}

func (f *fixture) transactionCount(t *testing.T, listingID uint64) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.Transaction{}).Where("listing_id = ?", listingID).Count(&n).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return n
}

func strPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}
