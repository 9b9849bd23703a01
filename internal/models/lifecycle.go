package models

import "time"

// SoftDelete is the shared lifecycle state for every soft-deletable entity.
// Rows are never hard-deleted; visibility is always the single predicate
// "deleted_at IS NULL" (repository.Alive scope).
type SoftDelete struct {
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

func (s *SoftDelete) Deleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted stamps the row as deleted at the given time.
func (s *SoftDelete) MarkDeleted(at time.Time) {
	s.DeletedAt = &at
}

// Restore clears the deleted state (used by reaction/receipt re-activation).
func (s *SoftDelete) Restore() {
	s.DeletedAt = nil
}
