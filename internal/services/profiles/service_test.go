package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

type fakeStore struct {
	profiles map[uuid.UUID]model.Profile
	saves    int
}

func (f *fakeStore) Get(_ context.Context, userID uuid.UUID) (model.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return model.Profile{}, pgrepo.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeStore) Upsert(_ context.Context, userID uuid.UUID, fullName, phone string, now time.Time) (model.Profile, error) {
	f.saves++
	p := f.profiles[userID]
	p.ID = userID
	p.FullName = fullName
	p.Phone = phone
	p.UpdatedAt = now
	f.profiles[userID] = p
	return p, nil
}

type fakeNotifier struct {
	events []enums.AuthEvent
}

func (f *fakeNotifier) Notify(_ context.Context, _ uuid.UUID, event enums.AuthEvent) {
	f.events = append(f.events, event)
}

func TestUpdateNormalizesAndNotifies(t *testing.T) {
	store := &fakeStore{profiles: map[uuid.UUID]model.Profile{}}
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	userID := uuid.New()
	p, err := svc.Update(context.Background(), userID, UpdateInput{FullName: "  Ada   Buyer ", Phone: " +234 816 591 3697 "})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.FullName != "Ada Buyer" || p.Phone != "+234 816 591 3697" {
		t.Fatalf("unexpected normalized profile: %+v", p)
	}
	if !p.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected updated_at: %s", p.UpdatedAt)
	}
	if len(notifier.events) != 1 || notifier.events[0] != enums.AuthEventUserUpdated {
		t.Fatalf("expected USER_UPDATED, got %v", notifier.events)
	}
}

func TestUpdateValidation(t *testing.T) {
	store := &fakeStore{profiles: map[uuid.UUID]model.Profile{}}
	svc := NewService(store, nil)

	cases := []UpdateInput{
		{FullName: "   ", Phone: ""},
		{FullName: "Ada", Phone: "call me"},
		{FullName: "Ada", Phone: "+1"},
	}
	for _, in := range cases {
		if _, err := svc.Update(context.Background(), uuid.New(), in); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
	if store.saves != 0 {
		t.Fatalf("invalid input must not be saved")
	}
}

func TestGetMapsNotFound(t *testing.T) {
	svc := NewService(&fakeStore{profiles: map[uuid.UUID]model.Profile{}}, nil)
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
