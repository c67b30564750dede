package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	"github.com/ivankudzin/smmshop/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	Upsert(ctx context.Context, userID uuid.UUID, fullName, phone string, now time.Time) (model.Profile, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event enums.AuthEvent)
}

type Service struct {
	store    ProfileStore
	notifier Notifier
	now      func() time.Time
}

type UpdateInput struct {
	FullName string
	Phone    string
}

func NewService(store ProfileStore, notifier Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update saves the editable profile fields. Email belongs to the account and
// is not changed here.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, in UpdateInput) (model.Profile, error) {
	if userID == uuid.Nil {
		return model.Profile{}, ErrValidation
	}
	fullName, ok := validate.FullName(in.FullName)
	if !ok {
		return model.Profile{}, fmt.Errorf("full_name: %w", ErrValidation)
	}
	phone, ok := validate.Phone(in.Phone)
	if !ok {
		return model.Profile{}, fmt.Errorf("phone: %w", ErrValidation)
	}

	p, err := s.store.Upsert(ctx, userID, fullName, phone, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, enums.AuthEventUserUpdated)
	}
	return p, nil
}
