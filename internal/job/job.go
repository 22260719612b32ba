package job

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoPending     = errors.New("job: no pending jobs")
	ErrUnknownTable  = errors.New("job: unknown table")
	ErrInvalidFilter = errors.New("job: invalid filter")
)

// Table identifies a storage collection the worker knows how to clean up.
type Table string

const (
	TableMembers   Table = "members"
	TableSurveys   Table = "surveys"
	TableOverrides Table = "member_survey_permissions"
)

// Column is a whitelisted filter key. The worker never executes a predicate
// that is not listed here for the target table.
type Column string

const (
	ColumnOrganizationID Column = "organization_id"
	ColumnUserID         Column = "user_id"
	ColumnSurveyID       Column = "survey_id"
)

var allowedColumns = map[Table][]Column{
	TableMembers:   {ColumnOrganizationID, ColumnUserID},
	TableSurveys:   {ColumnOrganizationID},
	TableOverrides: {ColumnUserID, ColumnSurveyID},
}

// Filter is a closed, typed deletion predicate: delete rows where Column
// equals Value. It deliberately cannot express anything richer.
type Filter struct {
	Column Column `json:"column"`
	Value  int64  `json:"value"`
}

// ByOrganization builds a filter matching rows owned by an organization.
func ByOrganization(organizationID int64) Filter {
	return Filter{Column: ColumnOrganizationID, Value: organizationID}
}

// ByUser builds a filter matching rows owned by a user.
func ByUser(userID int64) Filter {
	return Filter{Column: ColumnUserID, Value: userID}
}

// BySurvey builds a filter matching rows scoped to a survey.
func BySurvey(surveyID int64) Filter {
	return Filter{Column: ColumnSurveyID, Value: surveyID}
}

// Validate reports whether the filter may be applied to the table. Checked at
// enqueue time so incompatible jobs never reach the worker.
func Validate(table Table, filter Filter) error {
	columns, ok := allowedColumns[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	for _, col := range columns {
		if filter.Column == col {
			if filter.Value <= 0 {
				return fmt.Errorf("%w: %s requires a positive id", ErrInvalidFilter, filter.Column)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: column %s not allowed for table %s", ErrInvalidFilter, filter.Column, table)
}

// Job is one queued cascading-cleanup task. A job stays pending (DoneAt nil)
// until the worker deletes the matching rows; failures increment ErrorCount
// and leave the job pending for the next tick, with no retry cap.
type Job struct {
	ID         int64      `json:"id"`
	Table      Table      `json:"table_name"`
	Filter     Filter     `json:"payload"`
	ErrorCount int        `json:"error_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DoneAt     *time.Time `json:"done_at,omitempty"`
}

// Done reports whether the job reached its terminal state.
func (j Job) Done() bool { return j.DoneAt != nil }

// Store is the durable queue of pending cascading-delete tasks.
type Store interface {
	// Enqueue validates and persists a new pending job.
	Enqueue(ctx context.Context, table Table, filter Filter) (Job, error)
	// NextPending returns the oldest pending job, or ErrNoPending.
	NextPending(ctx context.Context) (Job, error)
	// MarkDone transitions the job to its terminal state.
	MarkDone(ctx context.Context, id int64) error
	// RecordFailure increments the job's error count, leaving it pending.
	RecordFailure(ctx context.Context, id int64) error
}

// Enqueuer is the producer-side subset of Store used by deletion triggers.
type Enqueuer interface {
	Enqueue(ctx context.Context, table Table, filter Filter) (Job, error)
}

// Deleter executes a whitelisted row deletion against the storage layer.
type Deleter interface {
	DeleteWhere(ctx context.Context, table Table, filter Filter) error
}
