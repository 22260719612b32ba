package auth

import (
	"context"
	"errors"
	"fmt"

	"surveyhub.org/internal/survey"
)

// ResourceScope narrows an authorization request to one survey, making the
// override tier applicable.
type ResourceScope struct {
	SurveyID int64
}

// OverrideSource looks up survey-scoped grants.
type OverrideSource interface {
	FindOverride(ctx context.Context, userID, surveyID int64) (survey.PermissionOverride, error)
}

// Engine answers "may this member perform capability c on resource r?" using
// the two-tier policy: organization-wide role first, then the survey-scoped
// override. Decisions are evaluated fresh per request; nothing is cached.
type Engine struct {
	roles     *Registry
	overrides OverrideSource
}

// NewEngine constructs an Engine over the static registry and override store.
func NewEngine(roles *Registry, overrides OverrideSource) (*Engine, error) {
	if roles == nil {
		return nil, errors.New("role registry is required")
	}
	if overrides == nil {
		return nil, errors.New("override source is required")
	}
	return &Engine{roles: roles, overrides: overrides}, nil
}

// Authorize allows when the member's organization role grants c, or, given a
// scope, when an override for (member.UserID, scope.SurveyID) grants c. The
// check is strictly additive: the baseline role short-circuits to allow
// before the override is consulted, so an override can widen access but
// never revoke it. Returns nil on allow, ErrForbidden on deny, and a
// registry error (never a deny) when a role id fails to resolve.
func (e *Engine) Authorize(ctx context.Context, member *survey.Member, c Capability, scope *ResourceScope) error {
	if member == nil {
		return ErrForbidden
	}

	role, err := e.roles.Find(RoleID(member.RoleID))
	if err != nil {
		return err
	}
	if role.Can(c) {
		return nil
	}

	if scope == nil {
		return fmt.Errorf("%w: role %s lacks %s", ErrForbidden, role.Title, c)
	}

	override, err := e.overrides.FindOverride(ctx, member.UserID, scope.SurveyID)
	if err != nil {
		if errors.Is(err, survey.ErrNotFound) {
			return fmt.Errorf("%w: role %s lacks %s and no override for survey %d", ErrForbidden, role.Title, c, scope.SurveyID)
		}
		return err
	}

	granted, err := e.roles.Find(RoleID(override.RoleID))
	if err != nil {
		return err
	}
	if granted.Can(c) {
		return nil
	}
	return fmt.Errorf("%w: override role %s lacks %s", ErrForbidden, granted.Title, c)
}

// AuthorizeGrant is the privilege-escalation guard on override creation: the
// granting member may only hand out roles at or below their own privilege
// rank. Ranks, not raw role ids, carry the ordering.
func (e *Engine) AuthorizeGrant(granter *survey.Member, granted RoleID) error {
	if granter == nil {
		return ErrForbidden
	}
	own, err := e.roles.Find(RoleID(granter.RoleID))
	if err != nil {
		return err
	}
	target, err := e.roles.Find(granted)
	if err != nil {
		return err
	}
	if target.Rank > own.Rank {
		return fmt.Errorf("%w: cannot grant %s above own role %s", ErrForbidden, target.Title, own.Title)
	}
	return nil
}
