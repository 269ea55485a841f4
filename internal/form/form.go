// Package form owns the single shared create/edit form. It validates drafts
// and turns a submit into an immutable Intent; it never touches the list.
package form

import (
	"github.com/Makepad-fr/cities/internal/model"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Intent is what a successful submit hands to the reconciliation engine.
// TargetIndex and TargetID are only meaningful in ModeEdit.
type Intent struct {
	Mode        Mode
	Draft       model.City
	TargetIndex int
	TargetID    int64
	Session     uint64
}

// Controller is not safe for concurrent use; it lives on the UI event loop.
type Controller struct {
	mode        Mode
	targetIndex int
	draft       model.City
	session     uint64
	err         error
}

// New returns a controller in create mode with an empty draft.
func New() *Controller {
	c := &Controller{}
	c.StartCreate()
	return c
}

func (c *Controller) StartCreate() {
	c.mode = ModeCreate
	c.targetIndex = -1
	c.draft = model.City{}
	c.err = nil
	c.session++
}

// StartEdit copies item into the draft and remembers where it was shown.
func (c *Controller) StartEdit(index int, item model.City) {
	c.mode = ModeEdit
	c.targetIndex = index
	c.draft = item
	c.err = nil
	c.session++
}

func (c *Controller) Cancel() { c.StartCreate() }

// SetName updates the draft name and refreshes the field marker.
func (c *Controller) SetName(name string) {
	c.draft.Name = name
	c.err = c.draft.Validate()
}

// Submit validates draft and returns the intent for the current mode. On a
// validation failure the session is left as it was and the error is kept as the
// field marker.
func (c *Controller) Submit(draft model.City) (Intent, error) {
	if c.mode == ModeEdit {
		// the target id comes from the row being edited, not from the input
		draft.CityID = c.draft.CityID
	} else {
		draft.CityID = 0
	}
	c.draft = draft
	if err := draft.Validate(); err != nil {
		c.err = err
		return Intent{}, err
	}
	c.err = nil
	in := Intent{
		Mode:        c.mode,
		Draft:       draft.Normalized(),
		TargetIndex: -1,
		Session:     c.session,
	}
	if c.mode == ModeEdit {
		in.TargetIndex = c.targetIndex
		in.TargetID = draft.CityID
	}
	return in, nil
}

// Reset returns to create mode, but only when session is still the active one.
// It reports whether the reset happened.
func (c *Controller) Reset(session uint64) bool {
	if session != c.session {
		return false
	}
	c.StartCreate()
	return true
}

func (c *Controller) Mode() Mode        { return c.mode }
func (c *Controller) TargetIndex() int  { return c.targetIndex }
func (c *Controller) Draft() model.City { return c.draft }
func (c *Controller) Session() uint64   { return c.session }
func (c *Controller) Err() error        { return c.err }

// Valid reports whether the current draft could be submitted. The submit
// control renders disabled while this is false.
func (c *Controller) Valid() bool { return c.draft.Validate() == nil }
