// Package checkpoint provides durable, keyed storage of conversation state
// snapshots, enabling resumption by thread across process restarts.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

// ThreadKey identifies one user's one conversation session.
type ThreadKey struct {
	UserID    string
	SessionID string
}

// String renders the key in its canonical storage form.
func (k ThreadKey) String() string {
	return k.UserID + ":" + k.SessionID
}

// IOError wraps a persistence failure. Turn processing treats it as fatal:
// the user must not receive a response claiming success if state was not
// durably saved.
type IOError struct {
	Op  string
	Key ThreadKey
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Store persists conversation state snapshots by thread key.
//
// Load after Save for the same key returns a state observably equivalent to
// what was saved. Load for a key with no checkpoint returns (nil, nil).
type Store interface {
	Save(ctx context.Context, key ThreadKey, state *model.ConversationState) error
	Load(ctx context.Context, key ThreadKey) (*model.ConversationState, error)
}
