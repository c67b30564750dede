package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
)

const authEventsPrefix = "auth_events:"

// AuthEventRepo fans auth state changes out to every API instance holding an
// open event stream for the user.
type AuthEventRepo struct {
	client *goredis.Client
}

func NewAuthEventRepo(client *goredis.Client) *AuthEventRepo {
	return &AuthEventRepo{client: client}
}

func (r *AuthEventRepo) Publish(ctx context.Context, event authsvc.Event) error {
	if r.client == nil {
		return errNilClient
	}
	if event.UserID == uuid.Nil {
		return authsvc.ErrInvalidInput
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	if err := r.client.Publish(ctx, authEventsKey(event.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Subscribe streams the user's events until ctx is done or the returned
// close func is called. Malformed payloads are skipped.
func (r *AuthEventRepo) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan authsvc.Event, func() error, error) {
	if r.client == nil {
		return nil, nil, errNilClient
	}
	if userID == uuid.Nil {
		return nil, nil, authsvc.ErrInvalidInput
	}

	sub := r.client.Subscribe(ctx, authEventsKey(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe auth events: %w", err)
	}

	out := make(chan authsvc.Event, 8)
	messages := sub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event authsvc.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, sub.Close, nil
}

func authEventsKey(userID uuid.UUID) string {
	return authEventsPrefix + userID.String()
}
