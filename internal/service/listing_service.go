package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/repository"
	"gorm.io/gorm"
)

// maxTitleLength matches the title column, counted in characters.
const maxTitleLength = 120

type ListingService interface {
	Create(ctx context.Context, sellerUID, title, description string, price int64, typ model.ListingType) (*model.Listing, error)
	Get(ctx context.Context, id uint64) (*model.Listing, error)
}

type listingService struct {
	repo repository.ListingRepository
}

func NewListingService(repo repository.ListingRepository) ListingService {
	return &listingService{repo: repo}
}

func (s *listingService) Create(ctx context.Context, sellerUID, title, description string, price int64, typ model.ListingType) (*model.Listing, error) {
	if sellerUID == "" {
		return nil, ErrUnauthorized
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return nil, validationError("invalid title")
	}
	if price < 0 {
		return nil, validationError("price must not be negative")
	}
	if !typ.Valid() {
		return nil, validationError("type must be good, service or request")
	}
	l := &model.Listing{
		SellerUID:   sellerUID,
		Title:       title,
		Description: description,
		Price:       price,
		Type:        typ,
		Status:      model.ListingStatusActive,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *listingService) Get(ctx context.Context, id uint64) (*model.Listing, error) {
	return loadVisibleListing(ctx, s.repo, id)
}

// loadVisibleListing treats deleted listings as absent.
func loadVisibleListing(ctx context.Context, repo repository.ListingRepository, id uint64) (*model.Listing, error) {
	l, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("listing not found")
		}
		return nil, err
	}
	if l.Status == model.ListingStatusDeleted {
		return nil, notFound("listing not found")
	}
	return l, nil
}
