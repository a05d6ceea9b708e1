package links

import (
	"errors"
	"fmt"
)

// Code identifies a class of link or reconciliation failure.
type Code string

const (
	CodeNotFound              Code = "NOT_FOUND"
	CodeInvalidParameters     Code = "INVALID_PARAMETERS"
	CodeExists                Code = "EXISTS"
	CodeTargetProjectNotFound Code = "TARGET_PROJECT_NOT_FOUND"
	CodeContainerNotFound     Code = "CONTAINER_NOT_FOUND"
	CodeServiceNotFound       Code = "SERVICE_NOT_FOUND"
	CodeConfigMapNotFound     Code = "CONFIG_MAP_NOT_FOUND"
	CodeDeploymentNotFound    Code = "DEPLOYMENT_NOT_FOUND"
	CodeReconcileTimeout      Code = "RECONCILE_TIMEOUT"
)

var codeMessages = map[Code]string{
	CodeNotFound:              "Link not found",
	CodeInvalidParameters:     "Invalid link parameters",
	CodeExists:                "Link already exists",
	CodeTargetProjectNotFound: "Target project not found",
	CodeContainerNotFound:     "Container not found",
	CodeServiceNotFound:       "Service not found",
	CodeConfigMapNotFound:     "ConfigMap not found",
	CodeDeploymentNotFound:    "Deployment not found",
	CodeReconcileTimeout:      "Timed out waiting for build to finish",
}

// Error is the typed error returned by link and reconciliation operations.
// The message is derived from the code and the identifier it concerns.
type Error struct {
	Code       Code
	Identifier string
	Err        error
}

// NewError builds an Error for the given code and identifier.
func NewError(code Code, identifier string) *Error {
	return &Error{Code: code, Identifier: identifier}
}

// WrapError builds an Error that keeps the underlying cause.
func WrapError(code Code, identifier string, err error) *Error {
	return &Error{Code: code, Identifier: identifier, Err: err}
}

func (e *Error) Error() string {
	msg := codeMessages[e.Code]
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Identifier != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Identifier)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail is the structured view of an Error sent to observers.
type Detail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Detail returns the structured payload for notification consumers.
func (e *Error) Detail() Detail {
	return Detail{Code: e.Code, Message: e.Error()}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) Code {
	var linkErr *Error
	if errors.As(err, &linkErr) {
		return linkErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
