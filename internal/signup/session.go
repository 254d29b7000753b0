package signup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/utils"
)

// State is the transient signup-in-progress record, held in redis
// between the collect and confirm steps. No account rows exist until
// confirmation succeeds.
type State struct {
	Username string `json:"username"`
	Password string `json:"password"` // bcrypt hash, never plaintext
	Email    string `json:"email"`
	Phone    string `json:"phone"` // +E.164
	Xmpp     string `json:"xmpp,omitempty"`
}

// SessionStore keeps signup state keyed by an opaque token. Keys have
// no TTL: an abandoned signup can be resumed for as long as the redis
// data survives.
type SessionStore struct {
	redis *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{redis: client}
}

func (s *SessionStore) Put(ctx context.Context, state *State) (string, error) {
	token := utils.GenerateUUID()
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("error encoding signup state: %v", err)
	}
	if err := s.redis.Set(ctx, "signup:"+token, data, 0).Err(); err != nil {
		return "", fmt.Errorf("error storing signup state: %v", err)
	}
	return token, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (*State, error) {
	data, err := s.redis.Get(ctx, "signup:"+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading signup state: %v", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("error decoding signup state: %v", err)
	}
	return &state, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.redis.Del(ctx, "signup:"+token).Err()
}
