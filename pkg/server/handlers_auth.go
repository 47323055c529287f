package server

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).Post(func() { s.login(w, r) }).NotAllowed()
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthDisabled {
		s.respondError(w, http.StatusBadRequest, "Authentication is disabled on this server")
		return
	}
	if s.adminHash == nil {
		s.respondError(w, http.StatusUnauthorized, "Login is not configured")
		return
	}

	var req LoginRequest
	if s.decode(w, r).JSON(&req).RespondError() {
		return
	}

	if req.Username != s.cfg.AdminUser ||
		bcrypt.CompareHashAndPassword(s.adminHash, []byte(req.Password)) != nil {
		s.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.GenerateToken(s.adminID, req.Username, RoleAdmin)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "login"))
		return
	}

	s.respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()),
		Username:  req.Username,
		Role:      RoleAdmin,
	})
}
