package server

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/auth"
	"github.com/einkauf-app/einkauf/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, "invalid request body"))
		return
	}

	username, password, err := s.auth.Join(r.Context(), req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username": username,
		"password": password,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, "invalid request body"))
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(auth.TokenAge),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	username := auth.UserFromContext(r.Context())

	dailyCost, err := s.ledger.UserDailyCost(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	lifetimeCost, err := s.ledger.UserLifetimeCost(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := s.guard.UserLimit()
	percentage := 0
	if limit > 0.0001 {
		percentage = int(math.Min(dailyCost/limit*100, 100))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username":                  username,
		"percentage_of_daily_limit": percentage,
		"lifetime_cost_dollar":      lifetimeCost,
	})
}

func (s *Server) handleExtractIngredients(w http.ResponseWriter, r *http.Request) {
	username := auth.UserFromContext(r.Context())

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, "invalid request body"))
		return
	}

	ingredients, err := s.pipeline.ExtractIngredients(r.Context(), username, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredients": ingredients})
}

// seekResponse carries the ingredient even on failure so the client always
// sees the terminal state of the attempt.
type seekResponse struct {
	Ingredient model.Ingredient `json:"ingredient"`
	Error      string           `json:"error,omitempty"`
}

func (s *Server) handleSeekItem(w http.ResponseWriter, r *http.Request) {
	username := auth.UserFromContext(r.Context())

	var req struct {
		Ingredient model.Ingredient `json:"ingredient"`
		Vendor     string           `json:"vendor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, "invalid request body"))
		return
	}
	if req.Vendor == "" {
		req.Vendor = "rewe"
	}

	ingredient, err := s.pipeline.SeekItem(r.Context(), username, req.Ingredient, req.Vendor)
	if err != nil {
		kind := apperr.KindOf(err)
		writeJSON(w, kind.HTTPStatus(), seekResponse{
			Ingredient: ingredient,
			Error:      apperr.MessageOf(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, seekResponse{Ingredient: ingredient})
}

func (s *Server) handleSelectAlternative(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ingredient model.Ingredient `json:"ingredient"`
		ItemID     uuid.UUID        `json:"item_id"`
		Pieces     int64            `json:"pieces"`
		Vendor     string           `json:"vendor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, "invalid request body"))
		return
	}
	if req.Vendor == "" {
		req.Vendor = "rewe"
	}

	ingredient, err := s.pipeline.SelectAlternative(r.Context(), req.Ingredient, req.ItemID, req.Pieces, req.Vendor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seekResponse{Ingredient: ingredient})
}

func (s *Server) handleSetPieces(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ingredient model.Ingredient `json:"ingredient"`
		Pieces     int64            `json:"pieces"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, "invalid request body"))
		return
	}

	ingredient := s.pipeline.SetPieces(req.Ingredient, req.Pieces)
	writeJSON(w, http.StatusOK, seekResponse{Ingredient: ingredient})
}
