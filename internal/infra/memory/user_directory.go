package memory

import (
	"context"
	"sync"
)

// UserDirectory is a static set of known user ids. A directory created without ids
// accepts every user, which is how the service runs without a user database.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

func NewUserDirectory(userIDs ...string) *UserDirectory {
	d := &UserDirectory{}
	for _, id := range userIDs {
		d.Add(id)
	}
	return d
}

// Add registers a user id.
func (d *UserDirectory) Add(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.users == nil {
		d.users = make(map[string]struct{})
	}
	d.users[userID] = struct{}{}
}

func (d *UserDirectory) UserExists(_ context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.users == nil {
		return true, nil
	}
	_, ok := d.users[userID]
	return ok, nil
}
