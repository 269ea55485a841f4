// Package reconcile applies the outcome of asynchronous API operations to the
// list store.
//
// Work is split in two halves so that it fits an event loop: Execute performs
// the remote call and may run on any goroutine, Apply mutates the store and the
// form and must run on the goroutine that owns them. Operations are keyed by
// CityID, resolved from the row index when the operation is issued, so a
// response that arrives after its row moved or vanished never lands on a
// different city.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Makepad-fr/cities/internal/form"
	"github.com/Makepad-fr/cities/internal/model"
	"github.com/Makepad-fr/cities/internal/store/liststore"
)

var (
	// ErrUnknownIndex is returned when an action names a row that is not shown.
	ErrUnknownIndex = errors.New("no city at that position")
	// ErrNotCreated is returned when an edit targets a city without a server id.
	ErrNotCreated = errors.New("city has no id yet")
	// ErrTargetGone marks an update whose city was removed before the response
	// arrived. The response is dropped.
	ErrTargetGone = errors.New("city no longer in the list")
	// ErrMissingID marks a create response without a server-assigned id.
	ErrMissingID = errors.New("server returned no city id")
	// ErrUnknownOperation marks a result for an operation that is not pending.
	ErrUnknownOperation = errors.New("operation is not pending")
)

// Remote is the slice of the API client the engine needs.
type Remote interface {
	List(ctx context.Context) ([]model.City, error)
	Create(ctx context.Context, city model.City) (model.City, error)
	Update(ctx context.Context, city model.City) (model.City, error)
	Delete(ctx context.Context, id int64) error
}

type Kind int

const (
	KindLoad Kind = iota
	KindCreate
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type State int

const (
	StatePending State = iota
	StateApplied
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApplied:
		return "applied"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Operation is an issued request. Index is the row position at issue time and
// is informational only; CityID is what the result is applied against.
type Operation struct {
	ID      string
	Kind    Kind
	CityID  int64
	Index   int
	Payload model.City
	Session uint64
}

// Result is the raw outcome of Execute, before it is applied.
type Result struct {
	Op     Operation
	City   model.City
	Cities []model.City
	Err    error
}

// Outcome is what Apply reports back. Err is set exactly when State is
// StateFailed.
type Outcome struct {
	Op    Operation
	State State
	City  model.City
	Err   error
}

func (o Outcome) Failed() bool { return o.State == StateFailed }

type Engine struct {
	store  *liststore.Store
	form   *form.Controller
	remote Remote
	log    *zap.Logger

	pending map[string]Operation
	order   []string
}

// New wires an engine. A nil form gets a fresh controller and a nil logger
// discards output.
func New(store *liststore.Store, fc *form.Controller, remote Remote, log *zap.Logger) *Engine {
	if fc == nil {
		fc = form.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:   store,
		form:    fc,
		remote:  remote,
		log:     log,
		pending: map[string]Operation{},
	}
}

func (e *Engine) Store() *liststore.Store { return e.store }
func (e *Engine) Form() *form.Controller  { return e.form }

// Load issues a list fetch.
func (e *Engine) Load() Operation {
	return e.issue(Operation{Kind: KindLoad, Index: -1})
}

// Submit turns a form intent into a create or update operation.
func (e *Engine) Submit(in form.Intent) (Operation, error) {
	switch in.Mode {
	case form.ModeCreate:
		draft := in.Draft
		draft.CityID = 0
		return e.issue(Operation{Kind: KindCreate, Index: -1, Payload: draft, Session: in.Session}), nil
	case form.ModeEdit:
		if in.TargetID == 0 {
			return Operation{}, ErrNotCreated
		}
		draft := in.Draft
		draft.CityID = in.TargetID
		return e.issue(Operation{
			Kind:    KindUpdate,
			CityID:  in.TargetID,
			Index:   in.TargetIndex,
			Payload: draft,
			Session: in.Session,
		}), nil
	}
	return Operation{}, fmt.Errorf("unknown form mode %d", int(in.Mode))
}

// Delete issues a delete for the city currently shown at index.
func (e *Engine) Delete(index int) (Operation, error) {
	city, ok := e.store.At(index)
	if !ok {
		return Operation{}, ErrUnknownIndex
	}
	if !city.Created() {
		return Operation{}, ErrNotCreated
	}
	return e.issue(Operation{Kind: KindDelete, CityID: city.CityID, Index: index, Payload: city}), nil
}

func (e *Engine) issue(op Operation) Operation {
	op.ID = uuid.NewString()
	e.pending[op.ID] = op
	e.order = append(e.order, op.ID)
	e.log.Debug("operation issued",
		zap.String("op", op.ID),
		zap.Stringer("kind", op.Kind),
		zap.Int64("city_id", op.CityID),
		zap.Int("index", op.Index))
	return op
}

// Execute performs the remote call for op. It reads nothing but op and the
// remote, so it is safe to run off the owning goroutine.
func (e *Engine) Execute(ctx context.Context, op Operation) Result {
	res := Result{Op: op}
	switch op.Kind {
	case KindLoad:
		res.Cities, res.Err = e.remote.List(ctx)
	case KindCreate:
		res.City, res.Err = e.remote.Create(ctx, op.Payload)
	case KindUpdate:
		res.City, res.Err = e.remote.Update(ctx, op.Payload)
	case KindDelete:
		res.Err = e.remote.Delete(ctx, op.CityID)
		res.City = op.Payload
	default:
		res.Err = fmt.Errorf("unknown operation kind %d", int(op.Kind))
	}
	return res
}

// Apply folds a result into the store and form. Results are applied in the
// order they are handed in; nothing is reordered or cancelled.
func (e *Engine) Apply(res Result) Outcome {
	op := res.Op
	if _, ok := e.pending[op.ID]; !ok {
		return e.failed(op, ErrUnknownOperation)
	}
	e.finish(op.ID)

	switch op.Kind {
	case KindLoad:
		if res.Err != nil {
			e.store.ReplaceAll(nil)
			return e.failed(op, fmt.Errorf("load cities: %w", res.Err))
		}
		e.store.ReplaceAll(res.Cities)
		return e.applied(op, model.City{})

	case KindCreate:
		if res.Err != nil {
			return e.failed(op, fmt.Errorf("create %q: %w", op.Payload.Name, res.Err))
		}
		if !res.City.Created() {
			return e.failed(op, fmt.Errorf("create %q: %w", op.Payload.Name, ErrMissingID))
		}
		e.store.InsertAtEnd(res.City)
		e.form.Reset(op.Session)
		return e.applied(op, res.City)

	case KindUpdate:
		if res.Err != nil {
			return e.failed(op, fmt.Errorf("update city %d: %w", op.CityID, res.Err))
		}
		// the server accepted the edit either way, so the form is done with it
		e.form.Reset(op.Session)
		if !e.store.Replace(op.CityID, res.City) {
			return e.failed(op, fmt.Errorf("update city %d: %w", op.CityID, ErrTargetGone))
		}
		return e.applied(op, res.City)

	case KindDelete:
		if res.Err != nil {
			return e.failed(op, fmt.Errorf("delete city %d: %w", op.CityID, res.Err))
		}
		e.store.Remove(op.CityID)
		if e.form.Mode() == form.ModeEdit && e.form.Draft().CityID == op.CityID {
			e.form.Cancel()
		}
		return e.applied(op, res.City)
	}
	return e.failed(op, fmt.Errorf("unknown operation kind %d", int(op.Kind)))
}

// Do runs op to completion on the calling goroutine.
func (e *Engine) Do(ctx context.Context, op Operation) Outcome {
	return e.Apply(e.Execute(ctx, op))
}

// Pending returns in-flight operations in issue order.
func (e *Engine) Pending() []Operation {
	out := make([]Operation, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.pending[id])
	}
	return out
}

func (e *Engine) finish(id string) {
	delete(e.pending, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *Engine) applied(op Operation, city model.City) Outcome {
	e.log.Info("operation applied",
		zap.String("op", op.ID),
		zap.Stringer("kind", op.Kind),
		zap.Int64("city_id", city.CityID),
		zap.Int("cities", e.store.Len()))
	return Outcome{Op: op, State: StateApplied, City: city}
}

func (e *Engine) failed(op Operation, err error) Outcome {
	e.log.Warn("operation failed",
		zap.String("op", op.ID),
		zap.Stringer("kind", op.Kind),
		zap.Int64("city_id", op.CityID),
		zap.Error(err))
	return Outcome{Op: op, State: StateFailed, Err: err}
}
