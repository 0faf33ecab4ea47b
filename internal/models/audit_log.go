package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID uint `json:"userId"`
	User   User `json:"user,omitempty"`

	// проект, к которому относится событие; 0 для пользователей и клиентов
	ProjectID uint `gorm:"index" json:"projectId,omitempty"`

	Entity   string `gorm:"size:50;not null" json:"entity"` // "project", "payment_transaction", "extra_work"
	EntityID uint   `json:"entityId"`
	Action   string `gorm:"size:50;not null" json:"action"` // "create", "status_change", "reverse" и т.п.
	Details  string `gorm:"type:text" json:"details"`
}
