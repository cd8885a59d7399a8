package api

import (
	"net/http"
	"strconv"

	"github.com/splitledger/splitledger/internal/calculator"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/service"
)

type splitResponse struct {
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
}

type expenseResponse struct {
	ID          int64           `json:"id"`
	GroupID     int64           `json:"group_id"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Formatted   string          `json:"formatted"`
	Currency    string          `json:"currency"`
	SplitType   string          `json:"split_type"`
	PaidBy      int64           `json:"paid_by"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   int64           `json:"created_at"`
	Splits      []splitResponse `json:"splits"`
}

type expensePageResponse struct {
	Expenses    []expenseResponse `json:"expenses"`
	Total       int               `json:"total"`
	Pages       int               `json:"pages"`
	CurrentPage int               `json:"current_page"`
}

func toExpenseResponse(e *models.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      e.Amount.Float64(),
		Formatted:   money.Format(e.Amount, e.Currency),
		Currency:    e.Currency,
		SplitType:   e.SplitType,
		PaidBy:      e.PaidBy,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		Splits:      make([]splitResponse, len(e.Splits)),
	}
	for i, split := range e.Splits {
		resp.Splits[i] = splitResponse{
			UserID:    split.UserID,
			Name:      split.Name,
			Amount:    split.Amount.Float64(),
			Formatted: money.Format(split.Amount, e.Currency),
		}
	}
	return resp
}

type participantRequest struct {
	UserID     int64    `json:"user_id"`
	Name       string   `json:"name"`
	Percentage *float64 `json:"percentage,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount       float64              `json:"amount"`
		Description  string               `json:"description"`
		GroupID      int64                `json:"group_id"`
		SplitType    string               `json:"split_type"`
		PaidBy       int64                `json:"paid_by"`
		Currency     string               `json:"currency"`
		Participants []participantRequest `json:"participants"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	participants := make([]calculator.Participant, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = calculator.Participant{
			UserID:     p.UserID,
			Name:       p.Name,
			Percentage: p.Percentage,
		}
		if p.Amount != nil {
			amount, err := money.FromFloat(*p.Amount)
			if err != nil {
				writeError(w, service.ErrValidation)
				return
			}
			participants[i].Amount = &amount
		}
	}

	expense, err := s.expenses.AddExpense(r.Context(), middleware.GetUserID(r.Context()), service.ExpenseInput{
		Amount:       req.Amount,
		Description:  req.Description,
		GroupID:      req.GroupID,
		SplitType:    req.SplitType,
		PaidBy:       req.PaidBy,
		Currency:     req.Currency,
		Participants: participants,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)

	result, err := s.expenses.GetExpenses(r.Context(), middleware.GetUserID(r.Context()), groupID, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := expensePageResponse{
		Expenses:    make([]expenseResponse, len(result.Expenses)),
		Total:       result.Total,
		Pages:       result.Pages,
		CurrentPage: result.CurrentPage,
	}
	for i, e := range result.Expenses {
		resp.Expenses[i] = toExpenseResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathID(r, "expenseID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), middleware.GetUserID(r.Context()), expenseID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
