package handler

import (
	"net/http"

	"github.com/cradoe/puddle/internal/context"
	"github.com/cradoe/puddle/internal/request"
	"github.com/cradoe/puddle/internal/response"
	"github.com/cradoe/puddle/internal/service"
)

type approveWithdrawalResponse struct {
	Withdrawal service.WithdrawalView `json:"withdrawal"`
	PiggyBank  service.PiggyBankView  `json:"piggy_bank"`
}

func (h *RouteHandler) HandleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		PiggyBankID string         `json:"piggy_bank_id"`
		Amount      request.Amount `json:"amount"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	withdrawal, err := h.Service.RequestWithdrawal(r.Context(), user, service.RequestWithdrawalInput{
		PiggyBankID: input.PiggyBankID,
		Amount:      input.Amount.String(),
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	err = response.JSONCreatedResponse(w, service.NewWithdrawalView(withdrawal), "Withdrawal requested; waiting for your partner's approval")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleApproveWithdrawal takes an optional body with the hash of the chain
// execution.
func (h *RouteHandler) HandleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		TransactionHash string `json:"transaction_hash"`
	}

	err := request.DecodeOptionalJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	withdrawal, pb, err := h.Service.ApproveWithdrawal(r.Context(), user, r.PathValue("id"), input.TransactionHash)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data := approveWithdrawalResponse{
		Withdrawal: service.NewWithdrawalView(withdrawal),
		PiggyBank:  service.NewPiggyBankView(pb),
	}

	err = response.JSONOkResponse(w, data, "Withdrawal approved and executed", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	withdrawal, err := h.Service.RejectWithdrawal(r.Context(), user, r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, service.NewWithdrawalView(withdrawal), "Withdrawal rejected", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
