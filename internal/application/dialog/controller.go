// Package dialog holds the admin confirm dialog: one pending, parameterized
// dialog per owner (an admin session), confirmed or cancelled at most once.
package dialog

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNoPendingDialog is returned when confirming a dialog that is not the
// owner's current one (never opened, already answered, or replaced).
var ErrNoPendingDialog = errors.New("no pending dialog")

// Action runs when a dialog is confirmed.
type Action func(ctx context.Context) error

// Dialog is what the confirm screen shows and what it does on confirm.
type Dialog struct {
	ID       string
	Title    string
	Message  string
	ReturnTo string // where to go once the dialog closes
	Action   Action
}

// Controller keeps at most one open dialog per owner.
// INVARIANT: an Action runs at most once, and only for its owner.
type Controller struct {
	mu      sync.Mutex
	pending map[string]Dialog
	newID   func() string
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{
		pending: make(map[string]Dialog),
		newID:   func() string { return uuid.New().String() },
	}
}

// Open makes d the owner's pending dialog, replacing any earlier one.
// PRE: owner is non-empty; d.Action is non-nil
// POST: Returns the id the confirm form must echo back
func (c *Controller) Open(owner string, d Dialog) string {
	d.ID = c.newID()
	c.mu.Lock()
	c.pending[owner] = d
	c.mu.Unlock()
	return d.ID
}

// Pending returns the owner's open dialog, if any.
func (c *Controller) Pending(owner string) (Dialog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.pending[owner]
	return d, ok
}

// Confirm closes the owner's dialog and runs its action. The slot is cleared
// before the action runs, so a second Confirm with the same id fails even
// if the first is still in flight.
// PRE: id is the value returned by Open
// POST: dialog closed; returns the action's error or ErrNoPendingDialog
func (c *Controller) Confirm(ctx context.Context, owner, id string) (Dialog, error) {
	c.mu.Lock()
	d, ok := c.pending[owner]
	if !ok || d.ID != id {
		c.mu.Unlock()
		return Dialog{}, ErrNoPendingDialog
	}
	delete(c.pending, owner)
	c.mu.Unlock()

	if d.Action == nil {
		return d, nil
	}
	return d, d.Action(ctx)
}

// Cancel closes the owner's dialog without running anything.
// Returns the closed dialog so callers can honour ReturnTo.
func (c *Controller) Cancel(owner string) (Dialog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.pending[owner]
	delete(c.pending, owner)
	return d, ok
}
