package links

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Type says where the target project is managed.
type Type string

const (
	// TypeLocal targets are managed by this control plane.
	TypeLocal Type = "LOCAL"
	// TypeRemote targets are managed by another control plane at ParentPFEURL.
	TypeRemote Type = "REMOTE"
)

// Link is one declared dependency of a project on another project's address.
type Link struct {
	ProjectID    string `json:"projectID" yaml:"projectID" validate:"required"`
	ProjectName  string `json:"projectName" yaml:"projectName"`
	EnvName      string `json:"envName" yaml:"envName" validate:"required,envname"`
	ProjectURL   string `json:"projectURL,omitempty" yaml:"projectURL,omitempty" validate:"required_if=Type REMOTE,singleline"`
	ParentPFEURL string `json:"parentPFEURL,omitempty" yaml:"parentPFEURL,omitempty" validate:"required_if=Type REMOTE"`
	Type         Type   `json:"type" yaml:"type" validate:"required,oneof=LOCAL REMOTE"`
}

// EnvPair renders the link as NAME=value.
func (l Link) EnvPair() string {
	return l.EnvName + "=" + l.ProjectURL
}

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validate checks links with two extra tags. envname requires a shell
// identifier and singleline rejects line breaks, so every link stays one
// NAME=value line in the env file.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("envname", func(fl validator.FieldLevel) bool {
		return envNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})
	return v
}

// validateLink checks the link's own fields and its envName against others.
func validateLink(link Link, others []Link) error {
	if err := validate.Struct(link); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field())
			}
			return WrapError(CodeInvalidParameters, strings.Join(fields, ","), err)
		}
		return WrapError(CodeInvalidParameters, link.EnvName, err)
	}
	for _, other := range others {
		if other.EnvName == link.EnvName {
			return NewError(CodeExists, link.EnvName)
		}
	}
	return nil
}
