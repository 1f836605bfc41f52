package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ligun0805/reward-bridge/internal/ledger"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

const maxBodyBytes = 64 << 10

type secretRequest struct {
	Secret string `json:"secret"`
}

type tokenBalanceResponse struct {
	TotalTokens   int64   `json:"totalTokens"`
	WalletAddress *string `json:"walletAddress"`
}

type blockchainBalanceResponse struct {
	WalletAddress     *string `json:"walletAddress"`
	BlockchainBalance string  `json:"blockchainBalance"`
	InGameBalance     int64   `json:"inGameBalance"`
	Error             string  `json:"error,omitempty"`
}

type walletRequest struct {
	Secret        string `json:"secret"`
	WalletAddress string `json:"walletAddress"`
}

type transferRequest struct {
	Secret            string   `json:"secret"`
	RecipientUsername string   `json:"recipientUsername"`
	Amount            *float64 `json:"amount"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body"})
		return false
	}
	return true
}

// account resolves the caller's secret, writing the error response itself.
func (s *Server) account(w http.ResponseWriter, r *http.Request, secret string) (*ledger.Account, bool) {
	if strings.TrimSpace(secret) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid secret"})
		return nil, false
	}
	acct, err := s.ledger.FindBySecret(r.Context(), secret)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "User not found"})
		return nil, false
	case err != nil:
		s.logger.Error("account lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "An error occurred while fetching the account"})
		return nil, false
	}
	return acct, true
}

func walletOrNil(a *ledger.Account) *string {
	if a.WalletAddress == "" {
		return nil
	}
	w := a.WalletAddress
	return &w
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if !decode(w, r, &req) {
		return
	}
	acct, ok := s.account(w, r, req.Secret)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tokenBalanceResponse{TotalTokens: acct.TotalTokens, WalletAddress: walletOrNil(acct)})
}

// handleBlockchainBalance reports the on-chain balance next to the in-game
// one. A failed chain read still answers 200 with a zero balance and an
// error flag; the underlying error is logged.
func (s *Server) handleBlockchainBalance(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if !decode(w, r, &req) {
		return
	}
	acct, ok := s.account(w, r, req.Secret)
	if !ok {
		return
	}
	resp := blockchainBalanceResponse{
		WalletAddress:     walletOrNil(acct),
		BlockchainBalance: "0",
		InGameBalance:     acct.TotalTokens,
	}
	if acct.WalletAddress == "" {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	bal, err := s.chain.Balance(r.Context(), acct.WalletAddress)
	if err != nil {
		s.logger.Error("blockchain balance read failed", "wallet", acct.WalletAddress, "error", err)
		resp.Error = "Failed to fetch blockchain balance"
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.BlockchainBalance = bal
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetWalletAddress(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Secret) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid secret"})
		return
	}
	if req.WalletAddress == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Wallet address is required"})
		return
	}
	addr, err := s.ledger.SetWalletAddress(r.Context(), req.Secret, req.WalletAddress)
	switch {
	case errors.Is(err, rewardtoken.ErrInvalidAddress):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid wallet address format"})
		return
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "User not found"})
		return
	case err != nil:
		s.logger.Error("set wallet address failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "An error occurred while setting wallet address"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Wallet address updated successfully",
		"walletAddress": addr,
	})
}

func (s *Server) handleTransferTokens(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Secret) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid secret"})
		return
	}
	if strings.TrimSpace(req.RecipientUsername) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Recipient username is required"})
		return
	}
	if req.Amount == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Valid token amount is required"})
		return
	}
	amount, err := rewardtoken.PointsFromFloat(*req.Amount)
	if err != nil || amount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Valid token amount is required"})
		return
	}

	balance, err := s.ledger.Transfer(r.Context(), req.Secret, req.RecipientUsername, amount)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "User not found"})
		return
	case errors.Is(err, ledger.ErrRecipientNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Recipient not found"})
		return
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Insufficient token balance"})
		return
	case errors.Is(err, ledger.ErrSelfTransfer):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Cannot transfer tokens to yourself"})
		return
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Valid token amount is required"})
		return
	case err != nil:
		s.logger.Error("token transfer failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "An error occurred while transferring tokens"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("Successfully transferred %d tokens to %s", amount, req.RecipientUsername),
		"newBalance": balance,
	})
}

func (s *Server) handleTokenSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := s.chain.TotalSupply(r.Context())
	switch {
	case errors.Is(err, rewardtoken.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Message: "Reward token not configured"})
		return
	case err != nil:
		s.logger.Error("total supply read failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Message: "Failed to fetch total supply"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"totalSupply": supply})
}
