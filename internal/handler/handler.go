package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cradoe/puddle/internal/errHandler"
	"github.com/cradoe/puddle/internal/service"
)

type RouteHandler struct {
	ErrHandler *errHandler.ErrorRepository
	Service    *service.Service
}

func NewRouteHandler(handler *RouteHandler) *RouteHandler {
	return &RouteHandler{
		ErrHandler: handler.ErrHandler,
		Service:    handler.Service,
	}
}

type queryStringValues struct {
	Limit  int
	Offset int
}

// retrieveUrlQueryValues reads limit and offset. A page parameter is
// accepted in place of offset. Out of range values are left for the
// service to clamp.
func retrieveUrlQueryValues(r *http.Request) *queryStringValues {
	var queryValues = &queryStringValues{}
	query := r.URL.Query()

	if parsedLimit, err := strconv.Atoi(query.Get("limit")); err == nil && parsedLimit > 0 {
		queryValues.Limit = parsedLimit
	}

	if parsedOffset, err := strconv.Atoi(query.Get("offset")); err == nil && parsedOffset > 0 {
		queryValues.Offset = parsedOffset
	} else if parsedPage, err := strconv.Atoi(query.Get("page")); err == nil && parsedPage > 1 {
		limit := queryValues.Limit
		if limit == 0 {
			limit = service.DefaultTransactionsLimit
		}
		queryValues.Offset = (parsedPage - 1) * limit
	}

	return queryValues
}

var (
	conflictErrors = []error{
		service.ErrDuplicateTransaction,
		service.ErrPendingWithdrawalExists,
		service.ErrWithdrawalNotPending,
		service.ErrContractAlreadyLinked,
	}
	upstreamErrors = []error{
		service.ErrDeploymentFailed,
		service.ErrChainUnavailable,
	}
	notFoundErrors = []error{
		service.ErrUserNotFound,
		service.ErrPiggyBankNotFound,
		service.ErrWithdrawalNotFound,
	}
	forbiddenErrors = []error{
		service.ErrNotMember,
		service.ErrSelfApproval,
	}
)

func matchError(err error, targets []error) (error, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// serviceError writes the response for an error returned by the service.
// Messages come from the matched sentinel so wrapped causes stay in the logs.
func (h *RouteHandler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	var orphanErr *service.OrphanedContractError

	if errors.As(err, &validationErr) {
		h.ErrHandler.FailedValidation(w, r, validationErr.Errors)
		return
	}

	if errors.As(err, &orphanErr) {
		h.ErrHandler.ServerErrorMessage(w, r, err, service.OrphanedContractMessage)
		return
	}

	if target, ok := matchError(err, notFoundErrors); ok {
		h.ErrHandler.NotFoundMessage(w, r, target.Error())
		return
	}

	if target, ok := matchError(err, forbiddenErrors); ok {
		h.ErrHandler.Forbidden(w, r, target)
		return
	}

	if target, ok := matchError(err, conflictErrors); ok {
		h.ErrHandler.Conflict(w, r, target)
		return
	}

	if target, ok := matchError(err, upstreamErrors); ok {
		h.ErrHandler.UpstreamFailureMessage(w, r, err, target.Error())
		return
	}

	h.ErrHandler.ServerError(w, r, err)
}
