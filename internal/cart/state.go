package cart

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
	"github.com/shopspring/decimal"
)

// State is the ordered set of cart lines. Transitions below never mutate
// their input.
type State struct {
	Lines []Line `json:"items"`
}

func (s State) clone() State {
	out := State{Lines: make([]Line, len(s.Lines))}
	for i, line := range s.Lines {
		out.Lines[i] = line.clone()
	}
	return out
}

func (s State) indexOf(productID string) int {
	for i, line := range s.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// TotalItemCount sums the quantities of every line.
func (s State) TotalItemCount() int {
	total := 0
	for _, line := range s.Lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice sums unit price times quantity over every line.
func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.UnitPrice.Times(line.Quantity))
	}
	return total
}

func capacityError(limit int) error {
	return pkgerrors.New(pkgerrors.CodeCapacityExceeded, fmt.Sprintf("Only %d portions available", limit))
}

func applyAdd(s State, p Product, quantity int) (State, error) {
	if quantity < 1 {
		quantity = 1
	}
	limit := p.MaxAvailable()
	idx := s.indexOf(p.Key())
	if idx < 0 {
		if quantity > limit {
			return s, capacityError(limit)
		}
		out := s.clone()
		out.Lines = append(out.Lines, newLine(p, quantity, limit))
		return out, nil
	}

	next := s.Lines[idx].Quantity + quantity
	if next > limit {
		return s, capacityError(limit)
	}
	out := s.clone()
	out.Lines[idx].Quantity = next
	out.Lines[idx].MaxQuantity = &limit
	return out, nil
}

func applyRemove(s State, productID string) State {
	idx := s.indexOf(productID)
	if idx < 0 {
		return s
	}
	out := State{Lines: make([]Line, 0, len(s.Lines)-1)}
	for i, line := range s.Lines {
		if i != idx {
			out.Lines = append(out.Lines, line.clone())
		}
	}
	return out
}

func applySetQuantity(s State, productID string, quantity int) (State, error) {
	if quantity <= 0 {
		return applyRemove(s, productID), nil
	}
	idx := s.indexOf(productID)
	if idx < 0 {
		return s, nil
	}
	if limit := s.Lines[idx].MaxQuantity; limit != nil && quantity > *limit {
		return s, capacityError(*limit)
	}
	out := s.clone()
	out.Lines[idx].Quantity = quantity
	return out, nil
}

func applyClear(State) State {
	return State{Lines: []Line{}}
}
