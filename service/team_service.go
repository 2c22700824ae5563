package services

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"time"

	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

// TeamService manages user profiles and project memberships.
type TeamService struct {
	db     *gorm.DB
	notify *Notifier
}

func NewTeamService(db *gorm.DB, notify *Notifier) *TeamService {
	return &TeamService{db: db, notify: notify}
}

// EnsureProfile creates the profile row for an authenticated user if it does
// not exist yet, so the rest of the system has a user to reference.
func (s *TeamService) EnsureProfile(userID, email string) error {
	var user model.User
	err := s.db.First(&user, "id = ?", userID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[EnsureProfile] Error fetching user %s: %v", userID, err)
		return err
	}

	user = model.User{
		ID:        userID,
		Email:     email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		log.Printf("[EnsureProfile] Error creating user %s: %v", userID, err)
		return fmt.Errorf("failed to create user profile: %w", err)
	}
	return nil
}

// GetProfile fetches the caller's profile row.
func (s *TeamService) GetProfile(userID string) (model.User, error) {
	var user model.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, fmt.Errorf("no profile for user %s: %w", userID, ErrNotFound)
		}
		log.Printf("[GetProfile] Error fetching user %s: %v", userID, err)
		return user, err
	}
	return user, nil
}

// profileUpdatable lists the fields a user may set on their own profile.
var profileUpdatable = map[string]bool{
	"email":     true,
	"full_name": true,
	"phone":     true,
	"company":   true,
}

// UpdateProfile upserts the caller's profile. The SPA calls this after sign-in,
// which is what makes invite-by-email lookups possible.
func (s *TeamService) UpdateProfile(userID string, updates map[string]interface{}) (model.User, error) {
	var user model.User

	filtered := filterUpdates(updates, profileUpdatable)
	if email, ok := filtered["email"].(string); ok && email != "" {
		if err := s.EnsureProfile(userID, email); err != nil {
			return user, err
		}
	}

	user, err := s.GetProfile(userID)
	if err != nil {
		return user, err
	}
	if len(filtered) == 0 {
		return user, nil
	}
	filtered["updated_at"] = time.Now()
	if err := s.db.Model(&user).Updates(filtered).Error; err != nil {
		log.Printf("[UpdateProfile] Error updating user %s: %v", userID, err)
		return user, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetProfile(userID)
}

// validRoles are the assignable project roles.
var validRoles = map[string]bool{
	model.RoleOwner:         true,
	model.RoleManager:       true,
	model.RoleForeman:       true,
	model.RoleSubcontractor: true,
	model.RoleViewer:        true,
}

// RequireMember verifies the user belongs to the project and returns their
// membership.
func (s *TeamService) RequireMember(projectID, userID string) (model.ProjectMember, error) {
	var member model.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return member, fmt.Errorf("user %s is not a member of project %s: %w", userID, projectID, ErrForbidden)
		}
		log.Printf("[RequireMember] Error fetching membership: %v", err)
		return member, err
	}
	return member, nil
}

// RequireRole verifies membership with one of the given roles.
func (s *TeamService) RequireRole(projectID, userID string, roles ...string) (model.ProjectMember, error) {
	member, err := s.RequireMember(projectID, userID)
	if err != nil {
		return member, err
	}
	for _, role := range roles {
		if member.Role == role {
			return member, nil
		}
	}
	return member, fmt.Errorf("role %s may not perform this action: %w", member.Role, ErrForbidden)
}

// ListMembers returns the project roster with user profiles joined, shaped
// for the SPA's team view.
func (s *TeamService) ListMembers(projectID string) ([]map[string]interface{}, error) {
	var members []model.ProjectMember
	if err := s.db.Where("project_id = ?", projectID).Find(&members).Error; err != nil {
		log.Printf("[ListMembers] Error fetching members for project %s: %v", projectID, err)
		return nil, err
	}

	result := make([]map[string]interface{}, 0, len(members))
	for _, m := range members {
		var user model.User
		if err := s.db.First(&user, "id = ?", m.UserID).Error; err != nil {
			log.Printf("[ListMembers] Error fetching profile for %s: %v", m.UserID, err)
			continue
		}
		result = append(result, map[string]interface{}{
			"id":         m.ID,
			"user_id":    m.UserID,
			"role":       m.Role,
			"email":      user.Email,
			"full_name":  user.FullName,
			"company":    user.Company,
			"created_at": m.CreatedAt,
		})
	}
	return result, nil
}

// InviteMember adds an existing user to the project by email and sends them a
// notification. The user must already have signed up; account creation belongs
// to the auth provider.
func (s *TeamService) InviteMember(projectID, email, role, inviterID string) (model.ProjectMember, error) {
	var member model.ProjectMember

	if !validRoles[role] {
		return member, fmt.Errorf("unknown role %q", role)
	}

	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return member, fmt.Errorf("no user with email %s: %w", email, ErrNotFound)
		}
		log.Printf("[InviteMember] Error looking up %s: %v", email, err)
		return member, err
	}

	var existing model.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, user.ID).First(&existing).Error
	if err == nil {
		return member, fmt.Errorf("user %s is already a member: %w", email, ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return member, err
	}

	member = model.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		InvitedBy: inviterID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.Create(&member).Error; err != nil {
		log.Printf("[InviteMember] Error creating membership: %v", err)
		return member, fmt.Errorf("failed to add member: %w", err)
	}

	var project model.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err == nil {
		if err := sendInviteEmail(email, project.Name, role); err != nil {
			// Membership stands even if the mail bounces.
			log.Printf("[InviteMember] Error sending invite email to %s: %v", email, err)
		}
	}

	s.notify.Record(projectID, "member", member.ID, "created", inviterID, member)
	return member, nil
}

// UpdateMemberRole changes a member's role. The last owner cannot be demoted.
func (s *TeamService) UpdateMemberRole(projectID, userID, role, actorID string) error {
	if !validRoles[role] {
		return fmt.Errorf("unknown role %q", role)
	}
	member, err := s.RequireMember(projectID, userID)
	if err != nil {
		return err
	}

	if member.Role == model.RoleOwner && role != model.RoleOwner {
		var owners int64
		if err := s.db.Model(&model.ProjectMember{}).
			Where("project_id = ? AND role = ?", projectID, model.RoleOwner).
			Count(&owners).Error; err != nil {
			return err
		}
		if owners <= 1 {
			return fmt.Errorf("cannot demote the last owner: %w", ErrConflict)
		}
	}

	if err := s.db.Model(&member).Updates(map[string]interface{}{
		"role":       role,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("[UpdateMemberRole] Error updating member %s: %v", member.ID, err)
		return fmt.Errorf("failed to update member role: %w", err)
	}

	s.notify.Record(projectID, "member", member.ID, "updated", actorID, map[string]string{"role": role})
	return nil
}

// RemoveMember removes a user from the project. The last owner cannot leave.
func (s *TeamService) RemoveMember(projectID, userID, actorID string) error {
	member, err := s.RequireMember(projectID, userID)
	if err != nil {
		return err
	}

	if member.Role == model.RoleOwner {
		var owners int64
		if err := s.db.Model(&model.ProjectMember{}).
			Where("project_id = ? AND role = ?", projectID, model.RoleOwner).
			Count(&owners).Error; err != nil {
			return err
		}
		if owners <= 1 {
			return fmt.Errorf("cannot remove the last owner: %w", ErrConflict)
		}
	}

	if err := s.db.Delete(&member).Error; err != nil {
		log.Printf("[RemoveMember] Error removing member %s: %v", member.ID, err)
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.notify.Record(projectID, "member", member.ID, "deleted", actorID, nil)
	return nil
}

// sendInviteEmail notifies the invitee over SMTP.
func sendInviteEmail(email, projectName, role string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	if host == "" || from == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if port == "" {
		port = "587"
	}

	subject := fmt.Sprintf("You've been added to %s", projectName)
	body := fmt.Sprintf(`
	<html>
	<body>
		<h2>Project Invitation</h2>
		<p>You have been added to the project <strong>%s</strong> as <strong>%s</strong>.</p>
		<p>Sign in to see your tasks and deliveries.</p>
	</body>
	</html>
`, projectName, role)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + email + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
		body)

	auth := smtp.PlainAuth("", from, password, host)
	return smtp.SendMail(host+":"+port, auth, from, []string{email}, message)
}
