package httpapi

import (
	"net/http"

	"github.com/often-run/gateway/internal/apierr"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokensResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	UID          string `json:"uid,omitempty"`
}

// signup implements POST /signup: creates the identity backend account and
// a matching zero-balance ledger account under the same uid, so the caller
// can immediately call /getAccount with the token signup returns.
func (h *api) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		apierr.Write(w, apierr.Validationf("email and password are required"))
		return
	}

	tokens, err := h.d.Toolkit.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		apierr.Write(w, apierr.Validationf("signup failed: "+err.Error()))
		return
	}

	if _, err := h.d.Store.CreateAccount(r.Context(), tokens.UID, req.Email); err != nil {
		apierr.Write(w, apierr.Internalf("create account: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, tokensResponse(*tokens))
}

// login implements POST /login.
func (h *api) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}

	tokens, err := h.d.Toolkit.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokensResponse(*tokens))
}

// refresh implements POST /refresh.
func (h *api) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}

	tokens, err := h.d.Toolkit.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokensResponse(*tokens))
}
