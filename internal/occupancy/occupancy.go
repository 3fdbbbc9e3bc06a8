// Package occupancy derives table occupancy from the current order set.
// Nothing here is stored; callers recompute on every change.
package occupancy

import (
	"sort"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
)

type State string

const (
	StateAvailable State = "available"
	StateOccupied  State = "occupied"
	StateInactive  State = "inactive"
)

// TableView is one table with its derived state. CurrentOrder is the most
// recently created active order linked to the table, if any.
type TableView struct {
	Table        domain.Table  `json:"table"`
	State        State         `json:"state"`
	CurrentOrder *domain.Order `json:"current_order,omitempty"`
}

// Project computes the view for every table. A table with more than one
// active order is reported once per extra order; the newest order is kept as
// the current one.
func Project(tables []domain.Table, orders []domain.Order) ([]TableView, []domain.ConsistencyError) {
	active := make(map[uuid.UUID][]domain.Order)
	for _, o := range orders {
		if o.TableID == nil || !o.Status.IsActive() {
			continue
		}
		active[*o.TableID] = append(active[*o.TableID], o)
	}

	views := make([]TableView, 0, len(tables))
	var violations []domain.ConsistencyError
	for _, t := range tables {
		linked := active[t.ID]
		sort.SliceStable(linked, func(i, j int) bool {
			return linked[i].CreatedAt.After(linked[j].CreatedAt)
		})

		v := TableView{Table: t, State: StateAvailable}
		if len(linked) > 0 {
			current := linked[0]
			v.CurrentOrder = &current
			v.State = StateOccupied
		}
		if !t.IsActive {
			v.State = StateInactive
		}
		views = append(views, v)

		for _, extra := range linked[min(1, len(linked)):] {
			tableID := t.ID
			violations = append(violations, domain.ConsistencyError{
				OrderID: extra.ID,
				TableID: &tableID,
				Reason:  "table " + t.TableNumber + " already has active order " + linked[0].OrderNumber,
			})
		}
	}
	return views, violations
}

// Find returns the view for tableID.
func Find(views []TableView, tableID uuid.UUID) (TableView, bool) {
	for _, v := range views {
		if v.Table.ID == tableID {
			return v, true
		}
	}
	return TableView{}, false
}
