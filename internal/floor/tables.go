package floor

import (
	"context"
	"fmt"
)

// TableLister is the part of Store used to resolve a waiter's tables.
type TableLister interface {
	ListWaiterAssignments(ctx context.Context, waiterID int64) ([]WaiterAssignment, error)
	ListDiningTablesInAreas(ctx context.Context, diningAreaIDs []int64) ([]DiningTable, error)
}

// ResolveDiningTables returns every table in the dining areas a waiter is
// assigned to. When assignments is nil they are loaded from the store; a
// non-nil empty slice means the waiter has no assignments.
func ResolveDiningTables(ctx context.Context, store TableLister, waiterID int64, assignments []WaiterAssignment) ([]DiningTable, error) {
	if assignments == nil {
		var err error
		assignments, err = store.ListWaiterAssignments(ctx, waiterID)
		if err != nil {
			return nil, err
		}
	}

	areaIDs := AssignedAreas(assignments)
	if len(areaIDs) == 0 {
		return []DiningTable{}, nil
	}

	tables, err := store.ListDiningTablesInAreas(ctx, areaIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve dining tables for waiter %d: %w", waiterID, err)
	}
	return tables, nil
}

// AssignedAreas returns the distinct dining area ids of assignments in first
// seen order.
func AssignedAreas(assignments []WaiterAssignment) []int64 {
	seen := make(map[int64]struct{}, len(assignments))
	ids := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.DiningAreaID]; ok {
			continue
		}
		seen[a.DiningAreaID] = struct{}{}
		ids = append(ids, a.DiningAreaID)
	}
	return ids
}

// CoversArea reports whether any assignment is for diningAreaID.
func CoversArea(assignments []WaiterAssignment, diningAreaID int64) bool {
	for _, a := range assignments {
		if a.DiningAreaID == diningAreaID {
			return true
		}
	}
	return false
}
