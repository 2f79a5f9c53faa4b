package linking

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CallbackParams are the query parameters GitHub sends back after the App was
// installed and the user authorized it.
type CallbackParams struct {
	Code           string `query:"code"            validate:"required"`
	InstallationID string `query:"installation_id" validate:"required"`
	State          string `query:"state"           validate:"required"`
	SetupAction    string `query:"setup_action"`
}

var paramNames = map[string]string{
	"Code":           "code",
	"InstallationID": "installation_id",
	"State":          "state",
}

var validate = validator.New()

// Validate reports the first missing required parameter, in declaration order.
func (p CallbackParams) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		name := paramNames[validationErrors[0].Field()]
		return fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}

	return fmt.Errorf("%w: %v", ErrMissingParameter, err)
}
