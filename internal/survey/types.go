package survey

import "time"

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Organization is a tenant. Every member, survey, and override hangs off one.
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a platform account. A user participates in organizations through
// Member rows and may exist without belonging to any organization.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Member records one user's participation in one organization together with
// the organization-wide role. At most one live Member exists per
// (user_id, organization_id).
type Member struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	OrganizationID int64     `json:"organization_id"`
	RoleID         int64     `json:"role_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Survey belongs to exactly one organization.
type Survey struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PermissionOverride grants the capabilities of RoleID to UserID scoped to a
// single survey, independent of the user's organization-wide role. One active
// override exists per (user_id, survey_id); granting again replaces it.
type PermissionOverride struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SurveyID  int64     `json:"survey_id"`
	RoleID    int64     `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
