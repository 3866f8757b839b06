package handler

import (
	"net/http"

	"github.com/cradoe/puddle/internal/context"
	"github.com/cradoe/puddle/internal/request"
	"github.com/cradoe/puddle/internal/response"
	"github.com/cradoe/puddle/internal/service"
)

type depositResponse struct {
	Transaction service.TransactionView `json:"transaction"`
	PiggyBank   *service.PiggyBankView  `json:"piggy_bank,omitempty"`
	Pending     bool                    `json:"pending"`
}

// HandleRecordDeposit records a deposit the caller already sent on chain.
// A transaction that is not mined yet is stored as pending and answered
// with 202.
func (h *RouteHandler) HandleRecordDeposit(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		ContractAddress string         `json:"contract_address"`
		Amount          request.Amount `json:"amount"`
		TransactionHash string         `json:"transaction_hash"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	result, err := h.Service.RecordDeposit(r.Context(), user, service.RecordDepositInput{
		ContractAddress: input.ContractAddress,
		Amount:          input.Amount.String(),
		TransactionHash: input.TransactionHash,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data := depositResponse{
		Transaction: service.NewTransactionView(result.Transaction),
		Pending:     result.Pending,
	}
	if result.PiggyBank != nil {
		view := service.NewPiggyBankView(result.PiggyBank)
		data.PiggyBank = &view
	}

	if result.Pending {
		err = response.JSONAcceptedResponse(w, data, "Deposit recorded; it will be credited once the transaction is confirmed")
	} else {
		err = response.JSONCreatedResponse(w, data, "Deposit recorded successfully")
	}
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
