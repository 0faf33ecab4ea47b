package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectType string
type ProjectStatus string

const (
	ProjectResidential ProjectType = "residential"
	ProjectCommercial  ProjectType = "commercial"
	ProjectKitchen     ProjectType = "modular_kitchen"
	ProjectRenovation  ProjectType = "renovation"

	StatusLead      ProjectStatus = "lead"
	StatusDesign    ProjectStatus = "design"
	StatusExecution ProjectStatus = "execution"
	StatusHandover  ProjectStatus = "handover"
	StatusCompleted ProjectStatus = "completed"
	StatusCancelled ProjectStatus = "cancelled"
)

type Project struct {
	gorm.Model
	ClientID uint   `json:"clientId"`
	Client   Client `json:"client,omitempty"`

	Title       string        `gorm:"size:255;not null" json:"title"`
	Type        ProjectType   `gorm:"type:varchar(50);not null" json:"type"`
	Status      ProjectStatus `gorm:"type:varchar(50);not null" json:"status"`
	SiteAddress string        `gorm:"type:text" json:"siteAddress"`
	Description string        `gorm:"type:text" json:"description"`

	PlannedStart *time.Time `json:"plannedStart,omitempty"`
	PlannedEnd   *time.Time `json:"plannedEnd,omitempty"`
	ActualEnd    *time.Time `json:"actualEnd,omitempty"`

	ManagerID  uint `json:"managerId"`  // User.ID роли manager/admin
	DesignerID uint `json:"designerId"` // User.ID роли designer
}

func ValidProjectType(t ProjectType) bool {
	switch t {
	case ProjectResidential, ProjectCommercial, ProjectKitchen, ProjectRenovation:
		return true
	}
	return false
}

func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case StatusLead, StatusDesign, StatusExecution, StatusHandover, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
