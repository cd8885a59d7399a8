package api

import (
	"net/http"

	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/payment"
	"github.com/splitledger/splitledger/internal/service"
)

type intentResponse struct {
	ID         string  `json:"id"`
	ProviderID string  `json:"payment_intent_id"`
	UserID     int64   `json:"user_id"`
	Amount     float64 `json:"amount"`
	Formatted  string  `json:"formatted"`
	Currency   string  `json:"currency"`
	Status     string  `json:"status"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

func toIntentResponse(p *models.PaymentIntent) intentResponse {
	return intentResponse{
		ID:         p.ID,
		ProviderID: p.ProviderID,
		UserID:     p.UserID,
		Amount:     p.Amount.Float64(),
		Formatted:  money.Format(p.Amount, p.Currency),
		Currency:   p.Currency,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := money.FromFloat(req.Amount)
	if err != nil {
		writeError(w, service.ErrValidation)
		return
	}

	intent, err := s.payments.CreateIntent(r.Context(), middleware.GetUserID(r.Context()), amount, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIntentResponse(intent))
}

// handleCreateExpenseIntents opens collection intents for every split
// of an expense except the payer's. The caller must belong to the
// expense's group.
func (s *Server) handleCreateExpenseIntents(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathID(r, "expenseID")
	if err != nil {
		writeError(w, err)
		return
	}

	expense, err := s.expenses.GetForUser(r.Context(), middleware.GetUserID(r.Context()), expenseID)
	if err != nil {
		writeError(w, err)
		return
	}

	intents, err := s.payments.CreateIntentsForExpense(r.Context(), expense)
	if err != nil && len(intents) == 0 {
		writeError(w, err)
		return
	}

	resp := make([]intentResponse, len(intents))
	for i, intent := range intents {
		resp[i] = toIntentResponse(intent)
	}
	status := http.StatusCreated
	if err != nil {
		// Some intents failed at the provider; return what succeeded.
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PaymentIntentID == "" {
		writeError(w, service.ErrValidation)
		return
	}

	intent, err := s.payments.Confirm(r.Context(), req.PaymentIntentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIntentResponse(intent))
}

// handleWebhook receives provider notifications. It always returns 200
// for well-formed events the reconciler chose to ignore, so the
// provider stops redelivering them.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	event, err := payment.ParseWebhookEvent(r.Body)
	if err != nil {
		writeError(w, service.ErrValidation)
		return
	}

	if err := s.payments.HandleWebhook(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.payments.Balance(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": balance.UserID,
		"balance": balance.Balance.Float64(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	intents, err := s.payments.History(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]intentResponse, len(intents))
	for i, intent := range intents {
		resp[i] = toIntentResponse(intent)
	}
	writeJSON(w, http.StatusOK, resp)
}
