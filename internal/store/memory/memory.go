// Package memory provides an in-memory implementation of the survey and job
// stores. It backs tests and the dev mode of cmd/api; production uses the pg
// package.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"surveyhub.org/internal/job"
	"surveyhub.org/internal/obs"
	"surveyhub.org/internal/survey"
)

// Store keeps all rows in process memory guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	organizations map[int64]survey.Organization
	users         map[int64]survey.User
	members       map[int64]survey.Member
	surveys       map[int64]survey.Survey
	overrides     map[int64]survey.PermissionOverride
	jobs          map[int64]job.Job

	nextID int64
	events *job.Broadcast
	now    func() time.Time
}

// Option configures Store behavior.
type Option func(*Store)

// WithEvents publishes enqueued-job events to the broadcast.
func WithEvents(b *job.Broadcast) Option {
	return func(s *Store) { s.events = b }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewStore initialises an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		organizations: make(map[int64]survey.Organization),
		users:         make(map[int64]survey.User),
		members:       make(map[int64]survey.Member),
		surveys:       make(map[int64]survey.Survey),
		overrides:     make(map[int64]survey.PermissionOverride),
		jobs:          make(map[int64]job.Job),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ survey.Store = (*Store)(nil)
	_ job.Store    = (*Store)(nil)
	_ job.Deleter  = (*Store)(nil)
)

func (s *Store) nextSequence() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateOrganization(_ context.Context, name string) (survey.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	org := survey.Organization{
		ID:        s.nextSequence(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.organizations[org.ID] = org
	return org, nil
}

func (s *Store) GetOrganization(_ context.Context, id int64) (survey.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return survey.Organization{}, survey.ErrNotFound
	}
	return org, nil
}

func (s *Store) ListOrganizations(_ context.Context) ([]survey.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]survey.Organization, 0, len(s.organizations))
	for _, org := range s.organizations {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteOrganization(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.organizations[id]; !ok {
		return survey.ErrNotFound
	}
	delete(s.organizations, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, email, name, passwordHash, status string) (survey.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return survey.User{}, survey.ErrConflict
		}
	}
	now := s.now().UTC()
	user := survey.User{
		ID:           s.nextSequence(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (survey.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return survey.User{}, survey.ErrNotFound
	}
	return user, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (survey.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return survey.User{}, survey.ErrNotFound
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return survey.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CreateMember(_ context.Context, userID, organizationID, roleID int64) (survey.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return survey.Member{}, survey.ErrNotFound
	}
	if _, ok := s.organizations[organizationID]; !ok {
		return survey.Member{}, survey.ErrNotFound
	}
	for _, m := range s.members {
		if m.UserID == userID && m.OrganizationID == organizationID {
			return survey.Member{}, survey.ErrConflict
		}
	}
	now := s.now().UTC()
	member := survey.Member{
		ID:             s.nextSequence(),
		UserID:         userID,
		OrganizationID: organizationID,
		RoleID:         roleID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.members[member.ID] = member
	return member, nil
}

func (s *Store) GetMember(_ context.Context, id int64) (survey.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[id]
	if !ok {
		return survey.Member{}, survey.ErrNotFound
	}
	return member, nil
}

func (s *Store) FindMemberByUser(_ context.Context, userID, organizationID int64) (survey.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.UserID == userID && m.OrganizationID == organizationID {
			return m, nil
		}
	}
	return survey.Member{}, survey.ErrNotFound
}

func (s *Store) ListMembers(_ context.Context, organizationID int64) ([]survey.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []survey.Member
	for _, m := range s.members {
		if m.OrganizationID == organizationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteMember(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return survey.ErrNotFound
	}
	delete(s.members, id)
	return nil
}

func (s *Store) CreateSurvey(_ context.Context, organizationID int64, title, description string) (survey.Survey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.organizations[organizationID]; !ok {
		return survey.Survey{}, survey.ErrNotFound
	}
	now := s.now().UTC()
	sv := survey.Survey{
		ID:             s.nextSequence(),
		OrganizationID: organizationID,
		Title:          title,
		Description:    description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.surveys[sv.ID] = sv
	return sv, nil
}

func (s *Store) GetSurvey(_ context.Context, id int64) (survey.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.surveys[id]
	if !ok {
		return survey.Survey{}, survey.ErrNotFound
	}
	return sv, nil
}

func (s *Store) ListSurveys(_ context.Context, organizationID int64) ([]survey.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []survey.Survey
	for _, sv := range s.surveys {
		if sv.OrganizationID == organizationID {
			out = append(out, sv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteSurvey(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[id]; !ok {
		return survey.ErrNotFound
	}
	delete(s.surveys, id)
	return nil
}

func (s *Store) UpsertOverride(_ context.Context, userID, surveyID, roleID int64) (survey.PermissionOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for id, ov := range s.overrides {
		if ov.UserID == userID && ov.SurveyID == surveyID {
			ov.RoleID = roleID
			ov.UpdatedAt = now
			s.overrides[id] = ov
			return ov, nil
		}
	}
	ov := survey.PermissionOverride{
		ID:        s.nextSequence(),
		UserID:    userID,
		SurveyID:  surveyID,
		RoleID:    roleID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.overrides[ov.ID] = ov
	return ov, nil
}

func (s *Store) FindOverride(_ context.Context, userID, surveyID int64) (survey.PermissionOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ov := range s.overrides {
		if ov.UserID == userID && ov.SurveyID == surveyID {
			return ov, nil
		}
	}
	return survey.PermissionOverride{}, survey.ErrNotFound
}

func (s *Store) DeleteOverride(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overrides[id]; !ok {
		return survey.ErrNotFound
	}
	delete(s.overrides, id)
	return nil
}

// Enqueue validates and persists a pending deletion job.
func (s *Store) Enqueue(ctx context.Context, table job.Table, filter job.Filter) (job.Job, error) {
	if err := job.Validate(table, filter); err != nil {
		return job.Job{}, err
	}
	s.mu.Lock()
	now := s.now().UTC()
	queued := job.Job{
		ID:        s.nextSequence(),
		Table:     table,
		Filter:    filter,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[queued.ID] = queued
	s.mu.Unlock()

	obs.JobEnqueued()
	s.events.Publish(job.Event{Type: job.EventEnqueued, Job: queued})
	return queued, nil
}

// NextPending returns the oldest pending job.
func (s *Store) NextPending(_ context.Context) (job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		found   bool
		pending job.Job
	)
	for _, j := range s.jobs {
		if j.Done() {
			continue
		}
		if !found || j.CreatedAt.Before(pending.CreatedAt) || (j.CreatedAt.Equal(pending.CreatedAt) && j.ID < pending.ID) {
			pending = j
			found = true
		}
	}
	if !found {
		return job.Job{}, job.ErrNoPending
	}
	return pending, nil
}

func (s *Store) MarkDone(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not found", id)
	}
	now := s.now().UTC()
	j.DoneAt = &now
	j.UpdatedAt = now
	s.jobs[id] = j
	return nil
}

func (s *Store) RecordFailure(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not found", id)
	}
	j.ErrorCount++
	j.UpdatedAt = s.now().UTC()
	s.jobs[id] = j
	return nil
}

// PendingJobs returns pending jobs oldest first. Used by tests and the
// readiness surface.
func (s *Store) PendingJobs(_ context.Context) ([]job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []job.Job
	for _, j := range s.jobs {
		if !j.Done() {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteWhere removes rows from the named table matching the filter. The
// table and column whitelist is enforced again here so a stale job can never
// touch anything else.
func (s *Store) DeleteWhere(_ context.Context, table job.Table, filter job.Filter) error {
	if err := job.Validate(table, filter); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch table {
	case job.TableMembers:
		for id, m := range s.members {
			if matchMember(m, filter) {
				delete(s.members, id)
			}
		}
	case job.TableSurveys:
		for id, sv := range s.surveys {
			if filter.Column == job.ColumnOrganizationID && sv.OrganizationID == filter.Value {
				delete(s.surveys, id)
			}
		}
	case job.TableOverrides:
		for id, ov := range s.overrides {
			if matchOverride(ov, filter) {
				delete(s.overrides, id)
			}
		}
	default:
		return fmt.Errorf("%w: %s", job.ErrUnknownTable, table)
	}
	return nil
}

func matchMember(m survey.Member, filter job.Filter) bool {
	switch filter.Column {
	case job.ColumnOrganizationID:
		return m.OrganizationID == filter.Value
	case job.ColumnUserID:
		return m.UserID == filter.Value
	default:
		return false
	}
}

func matchOverride(ov survey.PermissionOverride, filter job.Filter) bool {
	switch filter.Column {
	case job.ColumnUserID:
		return ov.UserID == filter.Value
	case job.ColumnSurveyID:
		return ov.SurveyID == filter.Value
	default:
		return false
	}
}
