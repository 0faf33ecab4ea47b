package models

import "gorm.io/gorm"

// Client is the homeowner or business commissioning the work.
type Client struct {
	gorm.Model
	Name    string `gorm:"size:255;not null" json:"name"`
	Phone   string `gorm:"size:50" json:"phone"`
	Email   string `gorm:"size:255" json:"email"`
	Address string `gorm:"type:text" json:"address"` // billing address, site address lives on the project
	Notes   string `gorm:"type:text" json:"notes"`

	Projects []Project `json:"projects,omitempty"`
}
