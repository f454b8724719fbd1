package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
	"github.com/angelmondragon/foodrescue/pkg/logger"
	"github.com/angelmondragon/foodrescue/pkg/storage"
	"github.com/shopspring/decimal"
)

// Persister stores the ledger snapshot.
type Persister interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, payload []byte) error
}

// LedgerParams wires the ledger dependencies.
type LedgerParams struct {
	Persister Persister
	Logger    *logger.Logger
	// StorageKey overrides the snapshot name; defaults to storage.CartSnapshot.
	StorageKey string
}

// Ledger holds the cart lines. All methods are safe for concurrent use; each
// mutation checks capacity and commits under the same lock.
type Ledger struct {
	// writeMu orders commit and persist so snapshots land in mutation order.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   State
	lastErr string

	persister Persister
	logg      *logger.Logger
	key       string
}

// NewLedger builds an empty ledger. Call Restore to load the persisted snapshot.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Persister == nil {
		return nil, fmt.Errorf("cart persister required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	key := params.StorageKey
	if key == "" {
		key = storage.CartSnapshot
	}
	return &Ledger{
		state:     State{Lines: []Line{}},
		persister: params.Persister,
		logg:      logg,
		key:       key,
	}, nil
}

// AddItem adds quantity portions of product. Quantities below one count as
// one. Exceeding the product capacity returns a CAPACITY_EXCEEDED error and
// leaves the cart unchanged.
func (l *Ledger) AddItem(ctx context.Context, product Product, quantity int) error {
	ctx = l.logg.WithProductID(ctx, product.Key())
	return l.mutate(ctx, func(s State) (State, error) {
		return applyAdd(s, product, quantity)
	})
}

// RemoveItem drops the line for productID. Unknown ids are ignored.
func (l *Ledger) RemoveItem(ctx context.Context, productID string) {
	ctx = l.logg.WithProductID(ctx, productID)
	_ = l.mutate(ctx, func(s State) (State, error) {
		return applyRemove(s, productID), nil
	})
}

// SetQuantity overwrites the quantity of an existing line. Zero or less removes
// the line; unknown ids with a positive quantity are ignored.
func (l *Ledger) SetQuantity(ctx context.Context, productID string, quantity int) error {
	ctx = l.logg.WithProductID(ctx, productID)
	return l.mutate(ctx, func(s State) (State, error) {
		return applySetQuantity(s, productID, quantity)
	})
}

// Clear empties the cart.
func (l *Ledger) Clear(ctx context.Context) {
	_ = l.mutate(ctx, func(s State) (State, error) {
		return applyClear(s), nil
	})
}

// Lines returns a copy of the cart lines in insertion order.
func (l *Ledger) Lines() []Line {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.clone().Lines
}

// ItemByID returns a copy of the line for productID.
func (l *Ledger) ItemByID(productID string) (Line, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.state.indexOf(productID)
	if idx < 0 {
		return Line{}, false
	}
	return l.state.Lines[idx].clone(), true
}

func (l *Ledger) TotalItemCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.TotalItemCount()
}

func (l *Ledger) TotalPrice() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.TotalPrice()
}

// LastError is the message of the last rejected mutation, cleared by the next
// successful one.
func (l *Ledger) LastError() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

func (l *Ledger) ClearError() {
	l.mu.Lock()
	l.lastErr = ""
	l.mu.Unlock()
}

// Restore replaces the in-memory lines with the persisted snapshot. A missing
// snapshot leaves the cart empty.
func (l *Ledger) Restore(ctx context.Context) error {
	payload, err := l.persister.Load(ctx, l.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}
	var restored State
	if err := json.Unmarshal(payload, &restored); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart snapshot")
	}
	lines := make([]Line, 0, len(restored.Lines))
	for _, line := range restored.Lines {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		lines = append(lines, line)
	}

	l.writeMu.Lock()
	l.mu.Lock()
	l.state = State{Lines: lines}
	l.mu.Unlock()
	l.writeMu.Unlock()
	return nil
}

func (l *Ledger) mutate(ctx context.Context, transition func(State) (State, error)) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	next, err := transition(l.state)
	if err != nil {
		msg := pkgerrors.MessageOf(err)
		l.lastErr = msg
		l.mu.Unlock()
		l.logg.Debug(ctx, "cart mutation rejected: "+msg)
		return err
	}
	l.state = next
	l.lastErr = ""
	payload, encErr := json.Marshal(next)
	l.mu.Unlock()

	if encErr != nil {
		l.logg.WarnErr(ctx, "encode cart snapshot", encErr)
		return nil
	}
	if err := l.persister.Save(ctx, l.key, payload); err != nil {
		l.logg.WarnErr(ctx, "persist cart snapshot", err)
	}
	return nil
}
