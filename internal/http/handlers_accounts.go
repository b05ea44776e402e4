package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
	"goalfin/internal/services"
	"goalfin/internal/storage"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "List accounts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not load accounts")
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	respondSuccess(w, http.StatusOK, "", accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		Type     string          `json:"type"`
		Balance  decimal.Decimal `json:"balance"`
		Currency string          `json:"currency"`
		Color    string          `json:"color"`
		Icon     string          `json:"icon"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := s.accounts.Create(r.Context(), userID(r), services.CreateAccountInput{
		Name:     req.Name,
		Type:     req.Type,
		Balance:  req.Balance,
		Currency: req.Currency,
		Color:    req.Color,
		Icon:     req.Icon,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondSuccess(w, http.StatusCreated, "Account created", account)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Get(r.Context(), r.PathValue("id"), userID(r))
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Get account failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not load account")
		return
	}
	respondSuccess(w, http.StatusOK, "", account)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string          `json:"name"`
		Type     *string          `json:"type"`
		Balance  *decimal.Decimal `json:"balance"`
		Currency *string          `json:"currency"`
		Color    *string          `json:"color"`
		Icon     *string          `json:"icon"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := storage.AccountUpdate{
		Name:     req.Name,
		Balance:  req.Balance,
		Currency: req.Currency,
		Color:    req.Color,
		Icon:     req.Icon,
	}
	if req.Type != nil {
		t, err := core.ParseAccountType(*req.Type)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid account type")
			return
		}
		upd.Type = &t
	}

	account, err := s.accounts.Update(r.Context(), r.PathValue("id"), userID(r), upd)
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondSuccess(w, http.StatusOK, "Account updated", account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := s.accounts.Delete(r.Context(), r.PathValue("id"), userID(r))
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete account failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not delete account")
		return
	}
	respondSuccess(w, http.StatusOK, "Account deleted", nil)
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.accounts.Summary(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Account summary failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not build summary")
		return
	}
	if summary.Accounts == nil {
		summary.Accounts = []core.Account{}
	}
	respondSuccess(w, http.StatusOK, "", summary)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string          `json:"fromAccountId"`
		ToAccountID   string          `json:"toAccountId"`
		Amount        decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.accounts.Transfer(r.Context(), userID(r), req.FromAccountID, req.ToAccountID, req.Amount)
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondError(w, http.StatusNotFound, "Account not found")
		return
	case errors.Is(err, core.ErrInsufficientFunds):
		respondError(w, http.StatusUnprocessableEntity, "Insufficient funds")
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondSuccess(w, http.StatusOK, "Transfer completed", nil)
}
