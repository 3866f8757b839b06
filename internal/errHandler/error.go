package errHandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/cradoe/puddle/internal/response"
	"github.com/cradoe/puddle/internal/smtp"
)

type ErrorRepository struct {
	notificationEmail string
	baseURL           string
	logger            *slog.Logger
	mailer            smtp.MailerInterface
}

func New(notificationEmail, baseURL string, mailer smtp.MailerInterface, logger *slog.Logger) *ErrorRepository {
	return &ErrorRepository{
		notificationEmail: notificationEmail,
		baseURL:           baseURL,
		logger:            logger,
		mailer:            mailer,
	}
}

// ReportServerError logs err with a stack trace and mails it to the
// notification address when one is configured. r may be nil for errors
// raised outside a request.
func (e *ErrorRepository) ReportServerError(r *http.Request, err error) {
	var (
		message = err.Error()
		method  string
		url     string
		trace   = string(debug.Stack())
	)

	if r != nil {
		method = r.Method
		url = r.URL.String()
	}

	requestAttrs := slog.Group("request", "method", method, "url", url)
	e.logger.Error(message, requestAttrs, "trace", trace)

	if e.notificationEmail != "" && e.mailer != nil {
		data := map[string]any{
			"BaseURL":       e.baseURL,
			"Message":       message,
			"RequestMethod": method,
			"RequestURL":    url,
			"Trace":         trace,
		}

		err := e.mailer.Send(e.notificationEmail, data, "error-notification.tmpl")
		if err != nil {
			e.logger.Error(err.Error(), requestAttrs, "trace", string(debug.Stack()))
		}
	}
}

type Error struct {
	w       http.ResponseWriter
	r       *http.Request
	errors  any
	status  int
	message string
	headers http.Header
}

func (e *ErrorRepository) ErrorMessage(d *Error) {
	if d.message != "" {
		d.message = strings.ToUpper(d.message[:1]) + d.message[1:]
	}

	err := response.JSONErrorResponse(d.w, d.errors, d.message, d.status, d.headers)
	if err != nil {
		e.ReportServerError(d.r, err)
		d.w.WriteHeader(http.StatusInternalServerError)
	}
}

func (e *ErrorRepository) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	e.ReportServerError(r, err)

	message := "The server encountered a problem and could not process your request"
	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusInternalServerError,
		message: message,
	})
}

// ServerErrorMessage reports err but answers with a caller-facing message.
func (e *ErrorRepository) ServerErrorMessage(w http.ResponseWriter, r *http.Request, err error, message string) {
	e.ReportServerError(r, err)

	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusInternalServerError,
		message: message,
	})
}

func (e *ErrorRepository) NotFound(w http.ResponseWriter, r *http.Request) {
	e.NotFoundMessage(w, r, "The requested resource could not be found")
}

func (e *ErrorRepository) NotFoundMessage(w http.ResponseWriter, r *http.Request, message string) {
	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusNotFound,
		message: message,
	})
}

func (e *ErrorRepository) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("The %s method is not supported for this resource", r.Method)
	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusMethodNotAllowed,
		message: message,
	})
}

func (e *ErrorRepository) BadRequest(w http.ResponseWriter, r *http.Request, err error) {
	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusBadRequest,
		message: err.Error(),
	})
}

func (e *ErrorRepository) FailedValidation(w http.ResponseWriter, r *http.Request, v []string) {
	message := "Validation failed"
	if len(v) > 0 {
		message = v[0]
	}

	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusBadRequest,
		message: message,
		errors:  v,
	})
}

func (e *ErrorRepository) Forbidden(w http.ResponseWriter, r *http.Request, err error) {
	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusForbidden,
		message: err.Error(),
	})
}

func (e *ErrorRepository) Conflict(w http.ResponseWriter, r *http.Request, err error) {
	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusConflict,
		message: err.Error(),
	})
}

// UpstreamFailure is used when the chain rejected or could not be reached.
func (e *ErrorRepository) UpstreamFailure(w http.ResponseWriter, r *http.Request, err error) {
	e.UpstreamFailureMessage(w, r, err, err.Error())
}

// UpstreamFailureMessage logs err in full and answers with message only.
func (e *ErrorRepository) UpstreamFailureMessage(w http.ResponseWriter, r *http.Request, err error, message string) {
	e.logger.Error("upstream failure", "error", err, slog.Group("request", "method", r.Method, "url", r.URL.String()))

	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusBadGateway,
		message: message,
	})
}

func (e *ErrorRepository) RateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	headers := make(http.Header)
	headers.Set("Retry-After", "1")

	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusTooManyRequests,
		message: "Rate limit exceeded",
		headers: headers,
	})
}

func (e *ErrorRepository) InvalidAuthenticationToken(w http.ResponseWriter, r *http.Request) {
	headers := make(http.Header)
	headers.Set("WWW-Authenticate", "Bearer")

	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusUnauthorized,
		message: "Invalid authentication token",
		headers: headers,
	})
}

func (e *ErrorRepository) AuthenticationRequired(w http.ResponseWriter, r *http.Request) {
	message := "You must be authenticated to access this resource"
	e.ErrorMessage(&Error{
		w:       w,
		r:       r,
		status:  http.StatusUnauthorized,
		message: message,
	})
}
