package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"surveyhub.org/internal/audit"
	"surveyhub.org/internal/auth"
	"surveyhub.org/internal/survey"
)

type tokenRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// handleAuthToken verifies credentials and issues an access token. When
// organization_id is supplied the caller must be a member of that
// organization and the token carries the membership claim.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := a.svc.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, survey.ErrNotFound) {
			// Same answer as a wrong password; do not leak which emails exist.
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		handleDomainError(w, r, err)
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.Status != survey.UserStatusActive {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	claim := auth.Claim{SubjectID: user.ID}
	if req.OrganizationID != nil {
		if _, err := a.svc.FindMemberByUser(r.Context(), user.ID, *req.OrganizationID); err != nil {
			if errors.Is(err, survey.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, "invalid credentials")
				return
			}
			handleDomainError(w, r, err)
			return
		}
		claim.OrganizationID = req.OrganizationID
	}

	token, err := a.codec.Issue(claim)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	fields := map[string]any{"subject_id": user.ID}
	if claim.OrganizationID != nil {
		fields["organization_id"] = *claim.OrganizationID
	}
	_ = audit.LogEvent(r.Context(), "auth.token.issued", fields)

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
