package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"surveyhub.org/internal/audit"
	"surveyhub.org/internal/auth"
)

type createOrganizationRequest struct {
	Name string `json:"name"`
}

type createMemberRequest struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

type createSurveyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createOrganization(w, r)
	case http.MethodGet:
		a.listOrganizations(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// createOrganization provisions a new organization and enrolls the creator as
// its first manager, so the organization is administrable from the start.
func (a *API) createOrganization(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.svc.CreateOrganization(r.Context(), req.Name)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if _, err := a.svc.CreateMember(r.Context(), identity.UserID, org.ID, int64(auth.RoleManager)); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "organization.create", map[string]any{
		"organization_id": org.ID,
		"name":            org.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/organizations/%d", org.ID))
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) listOrganizations(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	orgs, err := a.svc.ListOrganizations(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/organizations/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	orgID, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case len(parts) == 1:
		a.handleOrganization(w, r, orgID)
	case len(parts) == 2 && parts[1] == "members":
		a.handleOrganizationMembers(w, r, orgID)
	case len(parts) == 2 && parts[1] == "surveys":
		a.handleOrganizationSurveys(w, r, orgID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleOrganization(w http.ResponseWriter, r *http.Request, orgID int64) {
	identity, ok := requireMember(w, r, orgID)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityView, nil); err != nil {
			handleAuthError(w, r, err)
			return
		}
		org, err := a.svc.GetOrganization(r.Context(), orgID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, org)
	case http.MethodDelete:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityDelete, nil); err != nil {
			handleAuthError(w, r, err)
			return
		}
		if err := a.svc.DeleteOrganization(r.Context(), orgID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "organization.delete", map[string]any{
			"organization_id": orgID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleOrganizationMembers(w http.ResponseWriter, r *http.Request, orgID int64) {
	identity, ok := requireMember(w, r, orgID)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityView, nil); err != nil {
			handleAuthError(w, r, err)
			return
		}
		members, err := a.svc.ListMembers(r.Context(), orgID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": members})
	case http.MethodPost:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityCreate, nil); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var req createMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if !a.roles.Known(auth.RoleID(req.RoleID)) {
			writeError(w, r, http.StatusBadRequest, "unknown role id")
			return
		}
		if err := a.engine.AuthorizeGrant(identity.Member, auth.RoleID(req.RoleID)); err != nil {
			handleAuthError(w, r, err)
			return
		}
		member, err := a.svc.CreateMember(r.Context(), req.UserID, orgID, req.RoleID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "member.create", map[string]any{
			"member_id":       member.ID,
			"organization_id": orgID,
			"role_id":         member.RoleID,
		})
		writeJSON(w, http.StatusCreated, member)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrganizationSurveys(w http.ResponseWriter, r *http.Request, orgID int64) {
	identity, ok := requireMember(w, r, orgID)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityView, nil); err != nil {
			handleAuthError(w, r, err)
			return
		}
		surveys, err := a.svc.ListSurveys(r.Context(), orgID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"surveys": surveys})
	case http.MethodPost:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityCreate, nil); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var req createSurveyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sv, err := a.svc.CreateSurvey(r.Context(), orgID, req.Title, req.Description)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "survey.create", map[string]any{
			"survey_id":       sv.ID,
			"organization_id": orgID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/surveys/%d", sv.ID))
		writeJSON(w, http.StatusCreated, sv)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
