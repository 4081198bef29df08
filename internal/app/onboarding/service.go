package onboarding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"bidwhist/internal/ports"
)

var ErrNotConfigured = errors.New("onboarding service not configured")

var (
	nameAdjectives = []string{"Lucky", "Bold", "Sly", "Steady", "Sharp", "Quiet", "Cunning", "Brave", "Clever", "Swift"}
	nameNouns      = []string{"Ace", "King", "Queen", "Jack", "Trump", "Book", "Spade", "Heart", "Club", "Diamond"}
)

// Result captures the profile applied to a new account.
type Result struct {
	DisplayName string
}

// Service gives newly created accounts a table-friendly display name.
type Service struct {
	accounts ports.AccountPort
	rng      *rand.Rand
}

// NewService constructs an onboarding service. accounts must be non-nil; rng
// may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{accounts: accounts, rng: rng}
}

// OnboardNewUser sets the username and display name of a new account.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s == nil || s.accounts == nil {
		return Result{}, ErrNotConfigured
	}
	if userID == "" {
		return Result{}, fmt.Errorf("onboarding: user id is required")
	}
	name := s.FriendlyName()
	if err := s.accounts.UpdateProfile(ctx, userID, name, name); err != nil {
		return Result{}, fmt.Errorf("update profile for %s: %w", userID, err)
	}
	return Result{DisplayName: name}, nil
}

// FriendlyName returns a name such as "LuckyAce4821".
func (s *Service) FriendlyName() string {
	adj := nameAdjectives[s.rng.Intn(len(nameAdjectives))]
	noun := nameNouns[s.rng.Intn(len(nameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, s.rng.Intn(9000)+1000)
}
