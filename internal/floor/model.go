// Package floor holds the restaurant floor domain: dining areas, dining
// tables, waiter assignments and the events announcing changes to them.
package floor

import "time"

type DiningArea struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type DiningTable struct {
	ID             int64  `json:"id"`
	Number         int    `json:"number"`
	Capacity       int    `json:"capacity"`
	DiningAreaID   int64  `json:"diningAreaId"`
	DiningAreaName string `json:"diningAreaName"`
}

// WaiterAssignment places a waiter in charge of a dining area.
type WaiterAssignment struct {
	ID           int64     `json:"id"`
	WaiterID     int64     `json:"waiterId"`
	DiningAreaID int64     `json:"diningAreaId"`
	CreatedAt    time.Time `json:"createdAt"`
}
