package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"surveyhub.org/internal/audit"
	"surveyhub.org/internal/auth"
	"surveyhub.org/internal/survey"
)

type grantOverrideRequest struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

func (a *API) handleSurveyResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/surveys/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	surveyID, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case len(parts) == 1:
		a.handleSurvey(w, r, surveyID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleSurveyPermissions(w, r, surveyID)
	case len(parts) == 3 && parts[1] == "permissions":
		userID, err := parseID(parts[2])
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		a.handleSurveyPermission(w, r, surveyID, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// loadScopedSurvey fetches the survey and verifies the caller is a member of
// its organization. The survey is looked up before the membership check so an
// outsider probing ids gets 404 for missing surveys and 403 for real ones.
func (a *API) loadScopedSurvey(w http.ResponseWriter, r *http.Request, surveyID int64) (survey.Survey, auth.Identity, bool) {
	sv, err := a.svc.GetSurvey(r.Context(), surveyID)
	if err != nil {
		handleDomainError(w, r, err)
		return survey.Survey{}, auth.Identity{}, false
	}
	identity, ok := requireMember(w, r, sv.OrganizationID)
	if !ok {
		return survey.Survey{}, auth.Identity{}, false
	}
	return sv, identity, true
}

func (a *API) handleSurvey(w http.ResponseWriter, r *http.Request, surveyID int64) {
	sv, identity, ok := a.loadScopedSurvey(w, r, surveyID)
	if !ok {
		return
	}
	scope := &auth.ResourceScope{SurveyID: surveyID}

	switch r.Method {
	case http.MethodGet:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityView, scope); err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sv)
	case http.MethodDelete:
		if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityDelete, scope); err != nil {
			handleAuthError(w, r, err)
			return
		}
		if err := a.svc.DeleteSurvey(r.Context(), surveyID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "survey.delete", map[string]any{
			"survey_id":       surveyID,
			"organization_id": sv.OrganizationID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleSurveyPermissions grants a per-survey role override. Granting the
// same (user, survey) pair again replaces the previous grant.
func (a *API) handleSurveyPermissions(w http.ResponseWriter, r *http.Request, surveyID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sv, identity, ok := a.loadScopedSurvey(w, r, surveyID)
	if !ok {
		return
	}
	if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityEdit, &auth.ResourceScope{SurveyID: surveyID}); err != nil {
		handleAuthError(w, r, err)
		return
	}

	var req grantOverrideRequest
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
	// The grantee must belong to the survey's organization.
	if _, err := a.svc.FindMemberByUser(r.Context(), req.UserID, sv.OrganizationID); err != nil {
		if errors.Is(err, survey.ErrNotFound) {
			writeError(w, r, http.StatusBadRequest, "user is not a member of the survey's organization")
			return
		}
		handleDomainError(w, r, err)
		return
	}

	override, err := a.svc.GrantOverride(r.Context(), req.UserID, surveyID, req.RoleID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "override.grant", map[string]any{
		"survey_id":       surveyID,
		"granted_user_id": req.UserID,
		"role_id":         req.RoleID,
	})
	writeJSON(w, http.StatusCreated, override)
}

// handleSurveyPermission revokes the override for one user on one survey.
func (a *API) handleSurveyPermission(w http.ResponseWriter, r *http.Request, surveyID, userID int64) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	_, identity, ok := a.loadScopedSurvey(w, r, surveyID)
	if !ok {
		return
	}
	if err := a.engine.Authorize(r.Context(), identity.Member, auth.CapabilityEdit, &auth.ResourceScope{SurveyID: surveyID}); err != nil {
		handleAuthError(w, r, err)
		return
	}

	override, err := a.svc.FindOverride(r.Context(), userID, surveyID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.svc.RevokeOverride(r.Context(), override.ID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "override.revoke", map[string]any{
		"survey_id":       surveyID,
		"revoked_user_id": userID,
	})
	w.WriteHeader(http.StatusNoContent)
}
