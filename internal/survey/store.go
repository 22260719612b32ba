package survey

import "context"

// Store describes persistence operations required by the survey domain.
// Implementations return ErrNotFound for missing rows and ErrConflict for
// uniqueness violations.
type Store interface {
	CreateOrganization(ctx context.Context, name string) (Organization, error)
	GetOrganization(ctx context.Context, id int64) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error

	CreateUser(ctx context.Context, email, name, passwordHash, status string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateMember(ctx context.Context, userID, organizationID, roleID int64) (Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	FindMemberByUser(ctx context.Context, userID, organizationID int64) (Member, error)
	ListMembers(ctx context.Context, organizationID int64) ([]Member, error)
	DeleteMember(ctx context.Context, id int64) error

	CreateSurvey(ctx context.Context, organizationID int64, title, description string) (Survey, error)
	GetSurvey(ctx context.Context, id int64) (Survey, error)
	ListSurveys(ctx context.Context, organizationID int64) ([]Survey, error)
	DeleteSurvey(ctx context.Context, id int64) error

	UpsertOverride(ctx context.Context, userID, surveyID, roleID int64) (PermissionOverride, error)
	FindOverride(ctx context.Context, userID, surveyID int64) (PermissionOverride, error)
	DeleteOverride(ctx context.Context, id int64) error
}
