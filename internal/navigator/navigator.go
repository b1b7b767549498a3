// Package navigator tracks where a user is in the folder tree and how they
// got there.
package navigator

import "github.com/nikbrunner/bmtree/internal/model"

// DefaultHistoryLimit bounds the back stack when no limit is configured.
const DefaultHistoryLimit = 256

// Navigator holds the current folder cursor and a LIFO back history.
// It never consults storage: a cursor may point at a folder that no longer
// exists, which shows up downstream as an empty listing.
type Navigator struct {
	current *int64   // nil = root
	history []*int64 // previously visited folders, top = last element
	limit   int      // <= 0 means unbounded
}

// State is a snapshot of a Navigator.
type State struct {
	Current *int64
	History []*int64
}

// New creates a Navigator at root with an empty history.
func New(limit int) *Navigator {
	return &Navigator{
		current: nil,
		history: []*int64{},
		limit:   limit,
	}
}

// Current returns the folder being viewed (nil for root).
func (n *Navigator) Current() *int64 {
	return model.CloneRef(n.current)
}

// History returns a copy of the back stack, oldest first.
func (n *Navigator) History() []*int64 {
	out := make([]*int64, len(n.history))
	for i, ref := range n.history {
		out[i] = model.CloneRef(ref)
	}
	return out
}

// Depth returns the number of entries on the back stack.
func (n *Navigator) Depth() int {
	return len(n.history)
}

// CanGoBack returns true if Back would move the cursor.
func (n *Navigator) CanGoBack() bool {
	return len(n.history) > 0
}

// AtRoot returns true if currently at root folder.
func (n *Navigator) AtRoot() bool {
	return n.current == nil
}

// Enter pushes the current folder onto the history and moves into id.
// Entering the folder that is already current is a no-op and returns false,
// so the top of the history never equals the cursor after a move.
func (n *Navigator) Enter(id int64) bool {
	if n.current != nil && *n.current == id {
		return false
	}

	n.history = append(n.history, n.current)
	if n.limit > 0 && len(n.history) > n.limit {
		n.history = append([]*int64{}, n.history[len(n.history)-n.limit:]...)
	}
	n.current = model.Ref(id)
	return true
}

// Back pops the most recent folder off the history and makes it current.
// Returns false when the history is empty.
func (n *Navigator) Back() bool {
	if len(n.history) == 0 {
		return false
	}

	lastIdx := len(n.history) - 1
	n.current = n.history[lastIdx]
	n.history = n.history[:lastIdx]
	return true
}

// Reset resets navigation to root and clears the history.
func (n *Navigator) Reset() {
	n.current = nil
	n.history = []*int64{}
}

// State returns a snapshot that Restore can reinstate.
func (n *Navigator) State() State {
	return State{Current: n.Current(), History: n.History()}
}

// Restore reinstates a snapshot taken with State.
func (n *Navigator) Restore(s State) {
	n.current = model.CloneRef(s.Current)
	n.history = make([]*int64, len(s.History))
	for i, ref := range s.History {
		n.history[i] = model.CloneRef(ref)
	}
}
