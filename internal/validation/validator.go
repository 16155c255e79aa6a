package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
	"github.com/presence/internal/models"
)

const (
	MsgNameInvalid   = "Name is invalid!"
	MsgEmailInvalid  = "Email is invalid!"
	MsgEmailTaken    = "Email is taken!"
	MsgPhoneInvalid  = "Phone number is invalid!"
	MsgPhoneTaken    = "Phone number is taken!"
	MsgStatusInvalid = "User status is invalid!"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Error is a rejected user input. Its message is safe to show to clients.
type Error struct {
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(message string) *Error {
	return &Error{Message: message}
}

// IsValidationError reports whether err carries a client-facing message.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func Name(name string) error {
	if err := validate.Var(name, "required,max=255"); err != nil || strings.TrimSpace(name) == "" {
		return NewError(MsgNameInvalid)
	}
	return nil
}

func Email(email string) error {
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return NewError(MsgEmailInvalid)
	}
	return nil
}

// DefaultPhoneRegion is assumed for numbers written without a country code.
const DefaultPhoneRegion = "RU"

// Phone accepts any number libphonenumber considers valid, international or
// national for DefaultPhoneRegion, and returns it in E.164 form.
func Phone(phone string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", NewError(MsgPhoneInvalid)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func Status(status string) (models.PresenceStatus, error) {
	return models.ParseStatus(status)
}
