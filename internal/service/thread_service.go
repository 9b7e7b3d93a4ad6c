package service

import (
	"context"
	"log"

	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/profile"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/reqctx"
	"golang.org/x/sync/errgroup"
)

const (
	profileLookupConcurrency = 8
	maxInboxThreads          = 200
)

// ThreadKey identifies one viewer-scoped negotiation thread.
type ThreadKey struct {
	ListingID       uint64
	CounterpartyUID string
}

type Thread struct {
	Listing         *model.Listing
	CounterpartyUID string
	Messages        []model.Message
}

type InboxEntry struct {
	Key           ThreadKey
	ListingTitle  string
	ListingStatus model.ListingStatus
	LastMessage   model.Message
	Counterparty  *profile.Profile
}

type ThreadService interface {
	ResolveThread(ctx context.Context, viewerUID string, listingID uint64, declaredCounterparty string) (*Thread, error)
	ListInbox(ctx context.Context, viewerUID string) ([]InboxEntry, error)
}

type threadService struct {
	messages   repository.MessageRepository
	listings   repository.ListingRepository
	profiles   profile.Provider
	inboxLimit int
}

func NewThreadService(messages repository.MessageRepository, listings repository.ListingRepository, profiles profile.Provider) ThreadService {
	return &threadService{messages: messages, listings: listings, profiles: profiles, inboxLimit: maxInboxThreads}
}

// resolveCounterparty validates the counterparty a viewer declared for a
// thread. The seller may open a thread with any buyer; everyone else can
// only ever talk to the seller, whatever they declared.
func resolveCounterparty(l *model.Listing, viewerUID, declared string) (string, error) {
	if !l.IsSeller(viewerUID) {
		return l.SellerUID, nil
	}
	if declared == "" {
		return "", validationError("counterparty is required")
	}
	if declared == viewerUID {
		return "", validationError("cannot open a thread with yourself")
	}
	return declared, nil
}

func (s *threadService) ResolveThread(ctx context.Context, viewerUID string, listingID uint64, declaredCounterparty string) (*Thread, error) {
	if viewerUID == "" {
		return nil, ErrUnauthorized
	}
	l, err := loadVisibleListing(ctx, s.listings, listingID)
	if err != nil {
		return nil, err
	}
	counterparty, err := resolveCounterparty(l, viewerUID, declaredCounterparty)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBetween(ctx, l.ID, viewerUID, counterparty)
	if err != nil {
		return nil, err
	}
	return &Thread{Listing: l, CounterpartyUID: counterparty, Messages: msgs}, nil
}

func (s *threadService) ListInbox(ctx context.Context, viewerUID string) ([]InboxEntry, error) {
	if viewerUID == "" {
		return nil, ErrUnauthorized
	}
	rows, err := s.messages.LatestPerThread(ctx, viewerUID, s.inboxLimit)
	if err != nil {
		return nil, err
	}

	// rows are newest first, so the first row seen per key is its last message
	seen := make(map[ThreadKey]struct{})
	var entries []InboxEntry
	listingIDs := make([]uint64, 0)
	knownListing := make(map[uint64]struct{})
	for _, m := range rows {
		key := ThreadKey{ListingID: m.ListingID, CounterpartyUID: m.Counterparty(viewerUID)}
		if _, dup := seen[key]; dup {
			continue
		}
		if s.inboxLimit > 0 && len(entries) == s.inboxLimit {
			break
		}
		seen[key] = struct{}{}
		entries = append(entries, InboxEntry{Key: key, LastMessage: m})
		if _, ok := knownListing[m.ListingID]; !ok {
			knownListing[m.ListingID] = struct{}{}
			listingIDs = append(listingIDs, m.ListingID)
		}
	}

	listings, err := s.listings.FindVisibleByIDs(ctx, listingIDs)
	if err != nil {
		return nil, err
	}
	visible := entries[:0]
	for _, e := range entries {
		l, ok := listings[e.Key.ListingID]
		if !ok {
			continue
		}
		e.ListingTitle = l.Title
		e.ListingStatus = l.Status
		visible = append(visible, e)
	}

	s.attachProfiles(ctx, visible)
	return visible, nil
}

// attachProfiles fills in counterparty display data. Lookups are best
// effort; a missing profile leaves the entry without one.
func (s *threadService) attachProfiles(ctx context.Context, entries []InboxEntry) {
	if s.profiles == nil || len(entries) == 0 {
		return
	}
	uids := make([]string, 0)
	index := make(map[string]int)
	for _, e := range entries {
		if _, ok := index[e.Key.CounterpartyUID]; !ok {
			index[e.Key.CounterpartyUID] = len(uids)
			uids = append(uids, e.Key.CounterpartyUID)
		}
	}
	found := make([]*profile.Profile, len(uids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileLookupConcurrency)
	for i, uid := range uids {
		i, uid := i, uid
		g.Go(func() error {
			p, err := s.profiles.Get(gctx, uid)
			if err != nil {
				log.Printf("%s profile lookup for %s failed: %v", reqctx.LogPrefix(ctx), uid, err)
				return nil
			}
			found[i] = p
			return nil
		})
	}
	_ = g.Wait()

	for i := range entries {
		entries[i].Counterparty = found[index[entries[i].Key.CounterpartyUID]]
	}
}
