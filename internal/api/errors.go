package api

import (
	"net/http"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
)

// Codes for failures raised by the HTTP layer itself rather than the ledger.
const (
	codeBadRequest      = "BAD_REQUEST"
	codeUnauthenticated = "UNAUTHENTICATED"
	codeInternal        = string(ledgererror.KindInternal)
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind ledgererror.Kind) int {
	switch kind {
	case ledgererror.KindNotFound:
		return http.StatusNotFound
	case ledgererror.KindForbidden:
		return http.StatusForbidden
	case ledgererror.KindInvalidAmount:
		return http.StatusUnprocessableEntity
	case ledgererror.KindInsufficientFunds:
		return http.StatusConflict
	case ledgererror.KindInvalidOperation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeLedgerError reports err by kind. Internal failures never expose their
// cause.
func writeLedgerError(w http.ResponseWriter, err error) {
	kind := ledgererror.KindOf(err)
	writeError(w, StatusFor(kind), string(kind), ledgererror.MessageOf(err))
}
