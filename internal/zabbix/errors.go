package zabbix

import (
	"fmt"

	"github.com/pkg/errors"
)

// APIError is the error object of a JSON-RPC response
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`

	// Method is filled in by the client, it is not part of the payload.
	Method string `json:"-"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("zabbix api error %d: %s", e.Code, e.Message)
	if e.Data != "" {
		msg += " " + e.Data
	}
	if e.Method != "" {
		msg = e.Method + ": " + msg
	}
	return msg
}

// IsAPIError reports whether err carries an error object returned by the API
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// isTerminal reports whether a failed call must not be retried.
func isTerminal(err error) bool {
	return IsAPIError(err) || errors.Is(err, ErrEmptyResponse)
}
