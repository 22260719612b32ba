package pg

import (
	"context"
	"database/sql"
	"errors"

	"surveyhub.org/internal/survey"
)

func (s *Store) CreateOrganization(ctx context.Context, name string) (survey.Organization, error) {
	var org survey.Organization
	err := s.db.QueryRowContext(ctx, `
		insert into organizations (name)
		values ($1)
		returning id, name, created_at, updated_at
	`, name).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return survey.Organization{}, mapWriteError(err)
	}
	return org, nil
}

func (s *Store) GetOrganization(ctx context.Context, id int64) (survey.Organization, error) {
	var org survey.Organization
	err := s.db.QueryRowContext(ctx, `
		select id, name, created_at, updated_at
		from organizations
		where id = $1
	`, id).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return survey.Organization{}, survey.ErrNotFound
	}
	if err != nil {
		return survey.Organization{}, err
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]survey.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, created_at, updated_at
		from organizations
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []survey.Organization
	for rows.Next() {
		var org survey.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

func (s *Store) DeleteOrganization(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `organizations`, id)
}

func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash, status string) (survey.User, error) {
	var user survey.User
	err := s.db.QueryRowContext(ctx, `
		insert into users (email, name, password_hash, status)
		values ($1, $2, $3, $4)
		returning id, email, name, password_hash, status, created_at, updated_at
	`, email, name, passwordHash, status).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Status,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return survey.User{}, mapWriteError(err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (survey.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, status, created_at, updated_at
		from users
		where id = $1
	`, id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (survey.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, status, created_at, updated_at
		from users
		where email = $1
	`, email))
}

func (s *Store) scanUser(row *sql.Row) (survey.User, error) {
	var user survey.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Status,
		&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return survey.User{}, survey.ErrNotFound
	}
	if err != nil {
		return survey.User{}, err
	}
	return user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `users`, id)
}

func (s *Store) CreateMember(ctx context.Context, userID, organizationID, roleID int64) (survey.Member, error) {
	var member survey.Member
	err := s.db.QueryRowContext(ctx, `
		insert into members (user_id, organization_id, role_id)
		values ($1, $2, $3)
		returning id, user_id, organization_id, role_id, created_at, updated_at
	`, userID, organizationID, roleID).Scan(
		&member.ID, &member.UserID, &member.OrganizationID, &member.RoleID,
		&member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return survey.Member{}, mapWriteError(err)
	}
	return member, nil
}

func (s *Store) GetMember(ctx context.Context, id int64) (survey.Member, error) {
	return s.scanMember(s.db.QueryRowContext(ctx, `
		select id, user_id, organization_id, role_id, created_at, updated_at
		from members
		where id = $1
	`, id))
}

func (s *Store) FindMemberByUser(ctx context.Context, userID, organizationID int64) (survey.Member, error) {
	return s.scanMember(s.db.QueryRowContext(ctx, `
		select id, user_id, organization_id, role_id, created_at, updated_at
		from members
		where user_id = $1 and organization_id = $2
	`, userID, organizationID))
}

func (s *Store) scanMember(row *sql.Row) (survey.Member, error) {
	var member survey.Member
	err := row.Scan(
		&member.ID, &member.UserID, &member.OrganizationID, &member.RoleID,
		&member.CreatedAt, &member.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return survey.Member{}, survey.ErrNotFound
	}
	if err != nil {
		return survey.Member{}, err
	}
	return member, nil
}

func (s *Store) ListMembers(ctx context.Context, organizationID int64) ([]survey.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, organization_id, role_id, created_at, updated_at
		from members
		where organization_id = $1
		order by id
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []survey.Member
	for rows.Next() {
		var member survey.Member
		if err := rows.Scan(
			&member.ID, &member.UserID, &member.OrganizationID, &member.RoleID,
			&member.CreatedAt, &member.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `members`, id)
}

func (s *Store) CreateSurvey(ctx context.Context, organizationID int64, title, description string) (survey.Survey, error) {
	var sv survey.Survey
	err := s.db.QueryRowContext(ctx, `
		insert into surveys (organization_id, title, description)
		values ($1, $2, $3)
		returning id, organization_id, title, description, created_at, updated_at
	`, organizationID, title, description).Scan(
		&sv.ID, &sv.OrganizationID, &sv.Title, &sv.Description,
		&sv.CreatedAt, &sv.UpdatedAt)
	if err != nil {
		return survey.Survey{}, mapWriteError(err)
	}
	return sv, nil
}

func (s *Store) GetSurvey(ctx context.Context, id int64) (survey.Survey, error) {
	var sv survey.Survey
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, title, description, created_at, updated_at
		from surveys
		where id = $1
	`, id).Scan(
		&sv.ID, &sv.OrganizationID, &sv.Title, &sv.Description,
		&sv.CreatedAt, &sv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return survey.Survey{}, survey.ErrNotFound
	}
	if err != nil {
		return survey.Survey{}, err
	}
	return sv, nil
}

func (s *Store) ListSurveys(ctx context.Context, organizationID int64) ([]survey.Survey, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, title, description, created_at, updated_at
		from surveys
		where organization_id = $1
		order by id
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []survey.Survey
	for rows.Next() {
		var sv survey.Survey
		if err := rows.Scan(
			&sv.ID, &sv.OrganizationID, &sv.Title, &sv.Description,
			&sv.CreatedAt, &sv.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, sv)
	}
	return result, rows.Err()
}

func (s *Store) DeleteSurvey(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `surveys`, id)
}

func (s *Store) UpsertOverride(ctx context.Context, userID, surveyID, roleID int64) (survey.PermissionOverride, error) {
	var ov survey.PermissionOverride
	err := s.db.QueryRowContext(ctx, `
		insert into member_survey_permissions (user_id, survey_id, role_id)
		values ($1, $2, $3)
		on conflict (user_id, survey_id) do update
		set role_id = excluded.role_id, updated_at = now()
		returning id, user_id, survey_id, role_id, created_at, updated_at
	`, userID, surveyID, roleID).Scan(
		&ov.ID, &ov.UserID, &ov.SurveyID, &ov.RoleID,
		&ov.CreatedAt, &ov.UpdatedAt)
	if err != nil {
		return survey.PermissionOverride{}, mapWriteError(err)
	}
	return ov, nil
}

func (s *Store) FindOverride(ctx context.Context, userID, surveyID int64) (survey.PermissionOverride, error) {
	var ov survey.PermissionOverride
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, survey_id, role_id, created_at, updated_at
		from member_survey_permissions
		where user_id = $1 and survey_id = $2
	`, userID, surveyID).Scan(
		&ov.ID, &ov.UserID, &ov.SurveyID, &ov.RoleID,
		&ov.CreatedAt, &ov.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return survey.PermissionOverride{}, survey.ErrNotFound
	}
	if err != nil {
		return survey.PermissionOverride{}, err
	}
	return ov, nil
}

func (s *Store) DeleteOverride(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `member_survey_permissions`, id)
}

// deleteByID hard-deletes one row. Table names are compile-time literals from
// this package only.
func (s *Store) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from `+table+` where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return survey.ErrNotFound
	}
	return nil
}
