package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"surveyhub.org/internal/audit"
	"surveyhub.org/internal/auth"
	"surveyhub.org/internal/survey"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// handleUsers serves account registration. It is the one unauthenticated
// write endpoint; everything else requires a token.
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(strings.TrimSpace(req.Password)) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.svc.CreateUser(r.Context(), req.Email, req.Name, hash, survey.UserStatusActive)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"created_user_id": user.ID,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%d", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	userID, err := parseID(path)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	// Accounts are self-service: only the account owner may read or delete.
	if !identity.ActsOnUser(userID) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := a.svc.GetUser(r.Context(), userID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.svc.DeleteUser(r.Context(), userID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{
			"deleted_user_id": userID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleMemberResource removes a membership. The caller must hold the delete
// capability in the membership's organization.
func (a *API) handleMemberResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/members/"), "/")
	memberID, err := parseID(path)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	target, err := a.svc.GetMember(r.Context(), memberID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	identity, ok := requireMember(w, r, target.OrganizationID)
	if !ok {
		return
	}
	if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityDelete, nil); err != nil {
		handleAuthError(w, r, err)
		return
	}
	if err := a.svc.DeleteMember(r.Context(), memberID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "member.delete", map[string]any{
		"member_id":       memberID,
		"organization_id": target.OrganizationID,
	})
	w.WriteHeader(http.StatusNoContent)
}
