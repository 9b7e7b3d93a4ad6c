package profile

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// Profile is display data for a user. It is never used for authorization.
type Profile struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	Verified    bool    `json:"verified"`
}

type Provider interface {
	Get(ctx context.Context, uid string) (*Profile, error)
}

type firebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider reads profiles from Firebase Authentication user
// records; the verified flag is the account's email verification state.
func NewFirebaseProvider(client *auth.Client) Provider {
	return &firebaseProvider{client: client}
}

func (p *firebaseProvider) Get(ctx context.Context, uid string) (*Profile, error) {
	user, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &Profile{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		PhotoURL:    strPtrOrNil(user.PhotoURL),
		Verified:    user.EmailVerified,
	}, nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
