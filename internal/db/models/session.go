package models

import "time"

// Role separates the two identity classes sharing the sessions table.
type Role string

const (
	// RoleAdmin is the site owner.
	RoleAdmin Role = "admin"
	// RoleUser is a pseudonymous visitor.
	RoleUser Role = "user"
)

// Session maps an opaque token to an identity until ExpiresAt.
// Name and Avatar are only set for RoleUser.
type Session struct {
	ID        uint64    `gorm:"primaryKey"`
	Token     string    `gorm:"uniqueIndex;size:64;not null"`
	Role      Role      `gorm:"type:varchar(10);index;not null"`
	Name      string    `gorm:"size:50"`
	Avatar    string    `gorm:"size:500"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// Valid reports whether the session is still usable at now. A session expiring
// exactly at now is expired.
func (s *Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
