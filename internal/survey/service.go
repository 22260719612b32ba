package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"surveyhub.org/internal/job"
)

// Service wraps the store with input validation and the cascading-delete
// triggers. Hard-deleting a parent entity removes only the parent row inline;
// dependent rows are cleaned up out-of-band by the deletion worker, so a
// failed cleanup never rolls back or blocks the original request.
type Service struct {
	store Store
	jobs  job.Enqueuer
}

// NewService constructs a Service. The enqueuer is required because every
// parent delete must leave a durable cleanup record behind.
func NewService(store Store, jobs job.Enqueuer) (*Service, error) {
	if store == nil {
		return nil, errors.New("survey store is required")
	}
	if jobs == nil {
		return nil, errors.New("job enqueuer is required")
	}
	return &Service{store: store, jobs: jobs}, nil
}

func (s *Service) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	return s.store.CreateOrganization(ctx, name)
}

func (s *Service) GetOrganization(ctx context.Context, id int64) (Organization, error) {
	if id <= 0 {
		return Organization{}, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	return s.store.GetOrganization(ctx, id)
}

func (s *Service) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return s.store.ListOrganizations(ctx)
}

// DeleteOrganization removes the organization row and enqueues cleanup of its
// members and surveys.
func (s *Service) DeleteOrganization(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if err := s.store.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	if _, err := s.jobs.Enqueue(ctx, job.TableMembers, job.ByOrganization(id)); err != nil {
		return fmt.Errorf("enqueue member cleanup: %w", err)
	}
	if _, err := s.jobs.Enqueue(ctx, job.TableSurveys, job.ByOrganization(id)); err != nil {
		return fmt.Errorf("enqueue survey cleanup: %w", err)
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, email, name, passwordHash, status string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(passwordHash) == "" {
		return User{}, fmt.Errorf("%w: password hash is required", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		status = UserStatusActive
	}
	if status != UserStatusActive && status != UserStatusDisabled {
		return User{}, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
	}
	return s.store.CreateUser(ctx, email, name, passwordHash, status)
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.GetUser(ctx, id)
}

func (s *Service) FindUserByEmail(ctx context.Context, email string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.store.FindUserByEmail(ctx, email)
}

// DeleteUser removes the user row and enqueues cleanup of its memberships and
// survey permission overrides.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	if _, err := s.jobs.Enqueue(ctx, job.TableMembers, job.ByUser(id)); err != nil {
		return fmt.Errorf("enqueue membership cleanup: %w", err)
	}
	if _, err := s.jobs.Enqueue(ctx, job.TableOverrides, job.ByUser(id)); err != nil {
		return fmt.Errorf("enqueue override cleanup: %w", err)
	}
	return nil
}

func (s *Service) CreateMember(ctx context.Context, userID, organizationID, roleID int64) (Member, error) {
	if userID <= 0 || organizationID <= 0 {
		return Member{}, fmt.Errorf("%w: user id and organization id are required", ErrInvalidInput)
	}
	if roleID <= 0 {
		return Member{}, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.CreateMember(ctx, userID, organizationID, roleID)
}

func (s *Service) GetMember(ctx context.Context, id int64) (Member, error) {
	if id <= 0 {
		return Member{}, fmt.Errorf("%w: member id is required", ErrInvalidInput)
	}
	return s.store.GetMember(ctx, id)
}

func (s *Service) FindMemberByUser(ctx context.Context, userID, organizationID int64) (Member, error) {
	if userID <= 0 || organizationID <= 0 {
		return Member{}, fmt.Errorf("%w: user id and organization id are required", ErrInvalidInput)
	}
	return s.store.FindMemberByUser(ctx, userID, organizationID)
}

func (s *Service) ListMembers(ctx context.Context, organizationID int64) ([]Member, error) {
	if organizationID <= 0 {
		return nil, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	return s.store.ListMembers(ctx, organizationID)
}

func (s *Service) DeleteMember(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: member id is required", ErrInvalidInput)
	}
	return s.store.DeleteMember(ctx, id)
}

func (s *Service) CreateSurvey(ctx context.Context, organizationID int64, title, description string) (Survey, error) {
	if organizationID <= 0 {
		return Survey{}, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Survey{}, fmt.Errorf("%w: survey title is required", ErrInvalidInput)
	}
	return s.store.CreateSurvey(ctx, organizationID, title, strings.TrimSpace(description))
}

func (s *Service) GetSurvey(ctx context.Context, id int64) (Survey, error) {
	if id <= 0 {
		return Survey{}, fmt.Errorf("%w: survey id is required", ErrInvalidInput)
	}
	return s.store.GetSurvey(ctx, id)
}

func (s *Service) ListSurveys(ctx context.Context, organizationID int64) ([]Survey, error) {
	if organizationID <= 0 {
		return nil, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	return s.store.ListSurveys(ctx, organizationID)
}

// DeleteSurvey removes the survey row and enqueues cleanup of permission
// overrides scoped to it.
func (s *Service) DeleteSurvey(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: survey id is required", ErrInvalidInput)
	}
	if err := s.store.DeleteSurvey(ctx, id); err != nil {
		return err
	}
	if _, err := s.jobs.Enqueue(ctx, job.TableOverrides, job.BySurvey(id)); err != nil {
		return fmt.Errorf("enqueue override cleanup: %w", err)
	}
	return nil
}

// GrantOverride records a survey-scoped grant. A second grant for the same
// (user, survey) replaces the previous one.
func (s *Service) GrantOverride(ctx context.Context, userID, surveyID, roleID int64) (PermissionOverride, error) {
	if userID <= 0 || surveyID <= 0 {
		return PermissionOverride{}, fmt.Errorf("%w: user id and survey id are required", ErrInvalidInput)
	}
	if roleID <= 0 {
		return PermissionOverride{}, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.UpsertOverride(ctx, userID, surveyID, roleID)
}

func (s *Service) FindOverride(ctx context.Context, userID, surveyID int64) (PermissionOverride, error) {
	if userID <= 0 || surveyID <= 0 {
		return PermissionOverride{}, fmt.Errorf("%w: user id and survey id are required", ErrInvalidInput)
	}
	return s.store.FindOverride(ctx, userID, surveyID)
}

func (s *Service) RevokeOverride(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: override id is required", ErrInvalidInput)
	}
	return s.store.DeleteOverride(ctx, id)
}
