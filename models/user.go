package models

import "time"

// Project roles, from most to least privileged. Owners and managers can edit
// anything in the project; foremen can move tasks and resolve QA alerts;
// subcontractors propose task changes instead of editing; viewers read only.
const (
	RoleOwner         = "owner"
	RoleManager       = "manager"
	RoleForeman       = "foreman"
	RoleSubcontractor = "subcontractor"
	RoleViewer        = "viewer"
)

// User is a profile row keyed by the auth provider's subject id, so no
// generated default: the id arrives with the token.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectMember links a user to a project with a role.
type ProjectMember struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID string    `gorm:"type:uuid;uniqueIndex:idx_member_project_user;not null" json:"project_id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_member_project_user;not null" json:"user_id"`
	Role      string    `gorm:"not null" json:"role"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
