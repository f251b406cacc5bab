package models

import "time"

// Document is the metadata of an uploaded file; the bytes live in blob storage
type Document struct {
	ID          string    `json:"id"`
	SubjectType string    `json:"subjectType"` // tenant, org, lease, property
	SubjectID   string    `json:"subjectId"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	StorageKey  string    `json:"storageKey"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (d *Document) Identity() string    { return d.ID }
func (d *Document) Touch(now time.Time) { d.UpdatedAt = now }

// DocumentSubjects lists the accepted subject types
var DocumentSubjects = []string{"tenant", "org", "lease", "property"}
