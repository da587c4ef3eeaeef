package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"herdbook.org/internal/audit"
	"herdbook.org/internal/auth"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

type listUsersResponse struct {
	Users []*auth.Account `json:"users"`
	Total int             `json:"total"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parsePositiveInt(q.Get("limit"), 50, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be an integer between 1 and 500")
		return
	}
	offset, err := parsePositiveInt(q.Get("offset"), 0, 0, 1<<30)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	accounts, total, err := a.svc.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []*auth.Account{}
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Users: accounts, Total: total})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := a.svc.CreateAccount(r.Context(), req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.user.create", map[string]any{
		"account_id": account.ID,
		"email":      account.Email,
		"role":       account.Role,
	})
	w.Header().Set("Location", fmt.Sprintf("/auth/users/%s", account.ID))
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/auth/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		account, err := a.svc.GetAccount(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, account)

	case http.MethodPut:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		account, err := a.svc.UpdateAccount(r.Context(), id, auth.AccountUpdate{
			Email:    req.Email,
			FullName: req.FullName,
			Role:     req.Role,
			Active:   req.Active,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.user.update", map[string]any{
			"account_id": account.ID,
		})
		writeJSON(w, http.StatusOK, account)

	case http.MethodDelete:
		actor, _ := auth.IdentityFromContext(r.Context())
		if err := a.svc.DeleteAccount(r.Context(), actor, id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.user.delete", map[string]any{
			"account_id": id,
		})
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
