package httpapi

import (
	"net/http"

	"herdbook.org/internal/audit"
	"herdbook.org/internal/auth"
	"herdbook.org/internal/obs"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role"`
}

func publicAccount(acc *auth.Account) accountResponse {
	return accountResponse{
		ID:       acc.ID,
		Email:    acc.Email,
		FullName: acc.FullName,
		Role:     acc.Role,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := a.svc.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.ObserveRegistration()
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"account_id": account.ID,
		"email":      account.Email,
	})
	writeJSON(w, http.StatusOK, publicAccount(account))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveLogin("denied")
		handleAuthError(w, r, err)
		return
	}
	obs.ObserveLogin("ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"account_id": result.Account.ID,
		"email":      result.Account.Email,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"account":    publicAccount(result.Account),
	})
}

// handleLogout always reports success: removing an unknown or already
// expired session is not an error, and repeating a logout changes nothing.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := bearerToken(r.Header.Get(authHeader))
	if err := a.svc.Logout(r.Context(), token); err != nil {
		// A store failure still must not break the client-side logout.
		_ = audit.LogEvent(r.Context(), "auth.logout_failed", map[string]any{"error": err.Error()})
	} else if token != "" {
		_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated: missing token")
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		ID:       identity.AccountID,
		Email:    identity.Email,
		FullName: identity.FullName,
		Role:     identity.Role,
	})
}
