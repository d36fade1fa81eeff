package access

import (
	"context"

	"github.com/the-line/internal/logger"
)

// AdminStore looks up the administrator flag.
type AdminStore interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// Checker answers whether a user may run privileged actions. Every call goes
// to the store so a changed flag takes effect immediately.
type Checker struct {
	store AdminStore
}

func NewChecker(store AdminStore) *Checker {
	return &Checker{store: store}
}

// IsAdmin reports the flag. Unknown users and store errors yield false.
func (c *Checker) IsAdmin(ctx context.Context, userID int64) bool {
	isAdmin, err := c.store.IsAdmin(ctx, userID)
	if err != nil {
		logger.Errorf("IsAdmin: userId=%d: %v", userID, err)
		return false
	}
	return isAdmin
}
