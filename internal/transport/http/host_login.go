package http

import (
	"encoding/json"
	"net/http"

	"live-trivia-service/internal/auth"
)

// HostLoginHandler exchanges the shared host key for a session token.
type HostLoginHandler struct {
	auth *auth.HostAuthenticator
}

func NewHostLoginHandler(authenticator *auth.HostAuthenticator) *HostLoginHandler {
	return &HostLoginHandler{auth: authenticator}
}

type loginRequest struct {
	Key string `json:"key"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *HostLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.auth.IssueToken(req.Key)
	if err != nil {
		http.Error(w, "invalid key", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{Token: token})
}
