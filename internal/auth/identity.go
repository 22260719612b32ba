package auth

import (
	"context"
	"errors"
	"fmt"

	"surveyhub.org/internal/survey"
)

// IdentityKind tags the resolved caller identity.
type IdentityKind int

const (
	// KindAnonymous means no token was presented.
	KindAnonymous IdentityKind = iota
	// KindUser is a verified token without organization scope.
	KindUser
	// KindMember is a verified token scoped to one organization.
	KindMember
)

func (k IdentityKind) String() string {
	switch k {
	case KindAnonymous:
		return "anonymous"
	case KindUser:
		return "user"
	case KindMember:
		return "member"
	default:
		return fmt.Sprintf("identity(%d)", int(k))
	}
}

// Identity is the caller identity for one request. It is computed fresh per
// request and never persisted. User and Member are populated by Hydrate.
type Identity struct {
	Kind           IdentityKind
	UserID         int64
	OrganizationID int64

	User   *survey.User
	Member *survey.Member
}

// Authenticated reports whether a verified token backs this identity.
func (id Identity) Authenticated() bool { return id.Kind != KindAnonymous }

// ActsOnUser reports whether the identity may perform plain (non
// resource-scoped) actions on the given user: only the user itself.
func (id Identity) ActsOnUser(userID int64) bool {
	return id.Authenticated() && id.UserID == userID
}

// ActsInOrganization reports whether the identity may act on entities owned
// by the given organization: only a member of that organization.
func (id Identity) ActsInOrganization(organizationID int64) bool {
	return id.Kind == KindMember && id.OrganizationID == organizationID
}

// UserSource loads users for identity hydration.
type UserSource interface {
	GetUser(ctx context.Context, id int64) (survey.User, error)
}

// MemberSource loads membership rows for identity hydration.
type MemberSource interface {
	FindMemberByUser(ctx context.Context, userID, organizationID int64) (survey.Member, error)
}

// Resolver turns a raw bearer token into a typed Identity and hydrates it
// against the user and member stores.
type Resolver struct {
	codec   *Codec
	users   UserSource
	members MemberSource
}

// NewResolver constructs a Resolver.
func NewResolver(codec *Codec, users UserSource, members MemberSource) (*Resolver, error) {
	if codec == nil {
		return nil, errors.New("token codec is required")
	}
	if users == nil || members == nil {
		return nil, errors.New("user and member sources are required")
	}
	return &Resolver{codec: codec, users: users, members: members}, nil
}

// Resolve classifies the raw token. No token is a legitimate anonymous
// identity; a token that fails verification is ErrUnauthorized.
func (r *Resolver) Resolve(raw string) (Identity, error) {
	if raw == "" {
		return Identity{Kind: KindAnonymous}, nil
	}
	claim, err := r.codec.Verify(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claim.OrganizationID == nil {
		return Identity{Kind: KindUser, UserID: claim.SubjectID}, nil
	}
	return Identity{
		Kind:           KindMember,
		UserID:         claim.SubjectID,
		OrganizationID: *claim.OrganizationID,
	}, nil
}

// Hydrate loads the backing row for the identity. A missing or soft-deleted
// row collapses to ErrUnauthorized, never a not-found: callers must not learn
// whether an id exists.
func (r *Resolver) Hydrate(ctx context.Context, id Identity) (Identity, error) {
	switch id.Kind {
	case KindAnonymous:
		return Identity{}, ErrUnauthorized
	case KindUser:
		user, err := r.users.GetUser(ctx, id.UserID)
		if err != nil {
			return Identity{}, hydrationError(err)
		}
		if user.Status == survey.UserStatusDisabled {
			return Identity{}, ErrUnauthorized
		}
		id.User = &user
		return id, nil
	case KindMember:
		member, err := r.members.FindMemberByUser(ctx, id.UserID, id.OrganizationID)
		if err != nil {
			return Identity{}, hydrationError(err)
		}
		id.Member = &member
		return id, nil
	default:
		return Identity{}, ErrUnauthorized
	}
}

func hydrationError(err error) error {
	if errors.Is(err, survey.ErrNotFound) {
		return ErrUnauthorized
	}
	return err
}
