// Package forms validates what the user types before it reaches the
// session store.
package forms

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoginForm is the input of the login command.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Validate returns nil or a *ValidationError.
func (f LoginForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

// RegisterForm is the input of the register command.
type RegisterForm struct {
	Username string `json:"username" validate:"required,min=3,max=150,excludesall=0x20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Validate returns nil or a *ValidationError.
func (f RegisterForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok {
		return &ValidationError{Errors: errs}
	}
	return err
}

// ValidationError lists the fields that failed, in form order.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Messages returns one message per failing field, in form order.
func (e *ValidationError) Messages() []string {
	seen := make(map[string]struct{}, len(e.Errors))
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := seen[fe.Field()]; ok {
			continue
		}
		seen[fe.Field()] = struct{}{}
		msgs = append(msgs, message(fe))
	}
	return msgs
}

// Fields maps field names to the message shown next to them.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := fields[fe.Field()]; !ok {
			fields[fe.Field()] = message(fe)
		}
	}
	return fields
}

var labels = map[string]string{
	"email":    "Email",
	"password": "Password",
	"username": "Username",
}

func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "excludesall":
		return label + " must not contain spaces"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
