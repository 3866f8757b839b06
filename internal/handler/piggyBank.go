package handler

import (
	"net/http"

	"github.com/cradoe/puddle/internal/context"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/request"
	"github.com/cradoe/puddle/internal/response"
	"github.com/cradoe/puddle/internal/service"
)

type createPiggyBankResponse struct {
	PiggyBank       *service.PiggyBankView `json:"piggy_bank"`
	Partner         *service.UserView      `json:"partner,omitempty"`
	InvitePending   bool                   `json:"invite_pending"`
	InviteError     string                 `json:"invite_error,omitempty"`
	Pending         bool                   `json:"pending"`
	TransactionHash string                 `json:"transaction_hash,omitempty"`
}

type inviteResponse struct {
	Partner       *service.UserView `json:"partner,omitempty"`
	InvitePending bool              `json:"invite_pending"`
	Attempts      int               `json:"attempts"`
}

// HandleCreatePiggyBank answers 201 once the piggy bank is saved, or 202
// when the contract deployment has not been confirmed yet.
func (h *RouteHandler) HandleCreatePiggyBank(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Name            string         `json:"name"`
		GoalAmount      request.Amount `json:"goal_amount"`
		GoalDeadline    string         `json:"goal_deadline"`
		PartnerAddress  string         `json:"partner_address"`
		ContractAddress string         `json:"contract_address"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	result, err := h.Service.CreatePiggyBank(r.Context(), user, service.CreatePiggyBankInput{
		Name:            input.Name,
		GoalAmount:      input.GoalAmount.String(),
		GoalDeadline:    input.GoalDeadline,
		PartnerAddress:  input.PartnerAddress,
		ContractAddress: input.ContractAddress,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if result.Pending {
		data := createPiggyBankResponse{Pending: true, TransactionHash: result.DeployTransactionHash}

		err = response.JSONAcceptedResponse(w, data, "Contract deployment submitted; the piggy bank will be created once it is confirmed")
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	view := service.NewPiggyBankView(result.PiggyBank)
	view.Role = models.MemberRoleCreator
	data := createPiggyBankResponse{PiggyBank: &view}

	message := "Piggy bank created successfully"
	if invite := result.Invite; invite != nil {
		switch {
		case invite.Pending:
			data.InvitePending = true
			message = "Piggy bank created; the partner invite will be retried"
		case invite.Err != nil:
			data.InviteError = invite.Err.Error()
			message = "Piggy bank created but the partner could not be invited"
		case invite.Partner != nil:
			partner := service.NewUserView(invite.Partner)
			data.Partner = &partner
		}
	}

	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleListPiggyBanks(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	piggyBanks, err := h.Service.ListPiggyBanks(r.Context(), user)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, piggyBanks, "Piggy banks retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandlePiggyBankDetail(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	detail, err := h.Service.GetPiggyBankDetail(r.Context(), user, r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, detail, "Piggy bank retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandlePiggyBankTransactions(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)
	query := retrieveUrlQueryValues(r)

	page, err := h.Service.ListTransactions(r.Context(), user, r.PathValue("id"), query.Limit, query.Offset)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, page, "Transactions retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleInvitePartner(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		PartnerAddress string `json:"partner_address"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	result, err := h.Service.InvitePartner(r.Context(), user, service.InvitePartnerInput{
		PiggyBankID:    r.PathValue("id"),
		PartnerAddress: input.PartnerAddress,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data := inviteResponse{InvitePending: result.Pending, Attempts: result.Attempts}
	message := "Partner invited successfully"

	if result.Pending {
		message = "Partner invite could not be completed and will be retried"
	} else {
		partner := service.NewUserView(result.Partner)
		data.Partner = &partner
	}

	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
