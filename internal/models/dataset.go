package models

import "time"

// Dataset is a CSV file kept for reporting
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
	StorageKey  string    `json:"storageKey"`
	Columns     []string  `json:"columns"`
	RowCount    int       `json:"rowCount"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (d *Dataset) Identity() string    { return d.ID }
func (d *Dataset) Touch(now time.Time) { d.UpdatedAt = now }
