package domain

import "strings"

// Document is one catalog listing in the searchable corpus.
// Documents are validated once at the corpus boundary and are immutable
// after the index is built.
type Document struct {
	ID          string
	EquipmentID string
	GroupID     string
	Text        string
	Category    string // optional label supplied by the loader
}

// Identity returns the equipment identity used for deduplication:
// EquipmentID, falling back to GroupID, falling back to the document ID.
func (d Document) Identity() string {
	switch {
	case d.EquipmentID != "":
		return d.EquipmentID
	case d.GroupID != "":
		return d.GroupID
	default:
		return d.ID
	}
}

// Validate checks the minimal shape a listing must have to be indexed.
func (d Document) Validate() error {
	if d.ID == "" {
		return ErrInvalidDocument
	}
	if strings.TrimSpace(d.Text) == "" {
		return ErrInvalidDocument
	}
	return nil
}
