package models

import "time"

// User represents an authenticated user in the system.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name,omitempty"`
	Password  string    `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	// IsStaff grants unrestricted visibility over orders, reports and jobs.
	IsStaff bool `gorm:"not null" json:"is_staff"`

	Representative *Representative `gorm:"foreignKey:UserID" json:"representative,omitempty"`
}

// Representative is a sales representative. Orders are scoped to the
// representative that owns them.
type Representative struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	Active    bool      `gorm:"not null" json:"active"`
}
