package api

import (
	"errors"
	"net/http"

	"linkctl/internal/links"
)

// ErrProjectNotFound is returned when the project named in the path is unknown.
var ErrProjectNotFound = errors.New("project not found")

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, ErrProjectNotFound) {
		return http.StatusNotFound
	}
	switch links.CodeOf(err) {
	case links.CodeInvalidParameters:
		return http.StatusBadRequest
	case links.CodeNotFound,
		links.CodeTargetProjectNotFound,
		links.CodeContainerNotFound,
		links.CodeServiceNotFound,
		links.CodeConfigMapNotFound,
		links.CodeDeploymentNotFound:
		return http.StatusNotFound
	case links.CodeExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON body of a failed request.
func errorBody(err error) map[string]interface{} {
	var linkErr *links.Error
	if errors.As(err, &linkErr) {
		return map[string]interface{}{"error": linkErr.Detail()}
	}
	return map[string]interface{}{"error": links.Detail{Message: err.Error()}}
}
