package floor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDiningTableNotFound = errors.New("dining table not found")

// Store reads the floor plan and waiter assignments from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListWaiterAssignments returns the dining area assignments of a waiter.
func (s *Store) ListWaiterAssignments(ctx context.Context, waiterID int64) ([]WaiterAssignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, waiter_id, dining_area_id, created_at
		 FROM waiter_assignments WHERE waiter_id = $1
		 ORDER BY dining_area_id`, waiterID)
	if err != nil {
		return nil, fmt.Errorf("query waiter assignments: %w", err)
	}
	defer rows.Close()

	assignments := []WaiterAssignment{}
	for rows.Next() {
		var a WaiterAssignment
		if err := rows.Scan(&a.ID, &a.WaiterID, &a.DiningAreaID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan waiter assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// CountWaiterAssignments returns how many dining areas a waiter is assigned to.
func (s *Store) CountWaiterAssignments(ctx context.Context, waiterID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waiter_assignments WHERE waiter_id = $1`, waiterID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waiter assignments: %w", err)
	}
	return n, nil
}

// ListDiningTablesInAreas returns the tables of the given dining areas ordered
// by area then table number.
func (s *Store) ListDiningTablesInAreas(ctx context.Context, diningAreaIDs []int64) ([]DiningTable, error) {
	tables := []DiningTable{}
	if len(diningAreaIDs) == 0 {
		return tables, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.number, t.capacity, t.dining_area_id, a.name
		 FROM dining_tables t JOIN dining_areas a ON a.id = t.dining_area_id
		 WHERE t.dining_area_id = ANY($1)
		 ORDER BY t.dining_area_id, t.number`, diningAreaIDs)
	if err != nil {
		return nil, fmt.Errorf("query dining tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t DiningTable
		if err := rows.Scan(&t.ID, &t.Number, &t.Capacity, &t.DiningAreaID, &t.DiningAreaName); err != nil {
			return nil, fmt.Errorf("scan dining table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// GetDiningTable returns a single table or ErrDiningTableNotFound.
func (s *Store) GetDiningTable(ctx context.Context, id int64) (*DiningTable, error) {
	var t DiningTable
	err := s.pool.QueryRow(ctx,
		`SELECT t.id, t.number, t.capacity, t.dining_area_id, a.name
		 FROM dining_tables t JOIN dining_areas a ON a.id = t.dining_area_id
		 WHERE t.id = $1`, id).Scan(&t.ID, &t.Number, &t.Capacity, &t.DiningAreaID, &t.DiningAreaName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDiningTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query dining table %d: %w", id, err)
	}
	return &t, nil
}
