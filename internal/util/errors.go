package util

import (
	"errors"
	"fmt"
)

// MyResponseError carries a status and a message that is safe to show to clients.
type MyResponseError struct {
	Msg    string
	Status int
}

func (e MyResponseError) Error() string { return e.Msg }

func NewResponseError(status int, format string, args ...interface{}) error {
	return MyResponseError{
		Msg:    fmt.Sprintf(format, args...),
		Status: status,
	}
}

func AsResponseError(err error) (MyResponseError, bool) {
	var respErr MyResponseError
	if errors.As(err, &respErr) {
		return respErr, true
	}
	return MyResponseError{}, false
}
