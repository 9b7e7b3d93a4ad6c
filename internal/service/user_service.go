package service

import (
	"context"
	"log"

	"github.com/shinyyama/loops-backend/internal/profile"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/reqctx"
)

type PublicUser struct {
	Profile       profile.Profile
	Points        int64
	ReviewCount   int
	AverageRating float64
}

type UserService interface {
	GetPublic(ctx context.Context, uid string) (*PublicUser, error)
}

type userService struct {
	profiles   profile.Provider
	reputation repository.ReputationRepository
	reviews    repository.ReviewRepository
}

func NewUserService(profiles profile.Provider, reputation repository.ReputationRepository, reviews repository.ReviewRepository) UserService {
	return &userService{profiles: profiles, reputation: reputation, reviews: reviews}
}

// GetPublic combines the identity provider's display data with the user's
// trade reputation. Without a provider only the reputation is returned.
func (s *userService) GetPublic(ctx context.Context, uid string) (*PublicUser, error) {
	if uid == "" {
		return nil, validationError("invalid uid")
	}
	out := &PublicUser{Profile: profile.Profile{UID: uid}}
	if s.profiles != nil {
		p, err := s.profiles.Get(ctx, uid)
		if err != nil {
			log.Printf("%s profile lookup for %s failed: %v", reqctx.LogPrefix(ctx), uid, err)
			return nil, notFound("user not found")
		}
		out.Profile = *p
	}

	rep, err := s.reputation.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	out.Points = rep.Points

	reviews, err := s.reviews.ListByReviewee(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		out.ReviewCount = len(reviews)
		out.AverageRating = float64(sum) / float64(len(reviews))
	}
	return out, nil
}
