package repository

import "gorm.io/gorm"

// Alive is the single visibility predicate for soft-deleted rows. Every query
// that should only see live rows goes through this scope instead of repeating
// the deleted_at check inline.
func Alive(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

// AliveIn scopes the predicate to an explicit table (for joined queries).
func AliveIn(table string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table + ".deleted_at IS NULL")
	}
}
