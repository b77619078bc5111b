// internal/app/store/users/userstore.go
package users

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/studentportal/internal/app/system/portalapi"
)

// Store reads portal user accounts from the school backend.
type Store struct {
	api *portalapi.Client
}

func New(api *portalapi.Client) *Store {
	return &Store{api: api}
}

// Count returns the number of user accounts (length of GET /getUsers).
// The element shape is not interpreted.
func (s *Store) Count(ctx context.Context) (int, error) {
	var out []json.RawMessage
	if err := s.api.Get(ctx, "getUsers", "/getUsers", &out); err != nil {
		return 0, fmt.Errorf("user count: %w", err)
	}
	return len(out), nil
}
