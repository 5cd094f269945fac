// Package models contains the gorm record definitions.
package models

import "time"

// Setting is a named JSON document. The site settings singleton is one of them.
type Setting struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:100;not null"`
	Value     []byte
	UpdatedAt time.Time
}

// All lists every record type for AutoMigrate.
func All() []any {
	return []any{&Setting{}, &Session{}, &Comment{}}
}
