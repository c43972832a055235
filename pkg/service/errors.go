package service

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// TransferError reports a response status the remote service rejected the
// call with.
type TransferError struct {
	StatusCode int
	Status     string
	Action     string
}

func newTransferError(code int, action string) *TransferError {
	return &TransferError{
		StatusCode: code,
		Status:     StatusName(code),
		Action:     action,
	}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("status = %d:%s", e.StatusCode, e.Status)
}

// IsTransferError reports whether err carries a *TransferError and returns it.
func IsTransferError(err error) (*TransferError, bool) {
	var te *TransferError
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// statusNames spells the codes whose enum name differs from the status text.
// An empty name marks a code the enum leaves unnamed.
var statusNames = map[int]string{
	http.StatusTeapot:                  "",
	http.StatusTooEarly:                "",
	http.StatusRequestURITooLong:       "RequestUriTooLong",
	http.StatusHTTPVersionNotSupported: "HttpVersionNotSupported",
}

// StatusName returns the PascalCase name of an HTTP status code, e.g.
// "BadRequest" for 400. Codes without a name render as their number.
func StatusName(code int) string {
	if name, ok := statusNames[code]; ok {
		if name == "" {
			return strconv.Itoa(code)
		}
		return name
	}
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\'':
			return -1
		}
		return r
	}, text)
}
