package handler

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/service"
	"github.com/iliyamo/account-auth/internal/utils"
)

// validatable is implemented by every request payload.
type validatable interface {
	normalize()
	Validate() error
}

// bind decodes the request into req, trims it and validates it. Rule
// failures become a Validation error with one message per field.
func bind(c echo.Context, req validatable) error {
	if err := c.Bind(req); err != nil {
		return apperror.BadRequest("malformed request body")
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fields validation.Errors
	if !errors.As(err, &fields) {
		return apperror.Internal(fmt.Errorf("validate request: %w", err))
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		msg := fields[name].Error()
		// "username or email is required" already names its field
		if !strings.HasPrefix(msg, name+" ") {
			msg = name + " " + msg
		}
		out = append(out, msg)
	}
	return apperror.Validation("validation error", out)
}

var (
	usernameChars = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)
	onlyDigits    = regexp.MustCompile(`^\d+$`)
	anyDigit      = regexp.MustCompile(`\d`)
)

// usernameRule holds the username shape shared by register, login and update.
var usernameRule = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	s, _ := v.(string)
	if isNil || s == "" {
		return nil
	}
	switch {
	case onlyDigits.MatchString(s):
		return errors.New("cannot consist of only numbers")
	case !usernameChars.MatchString(s):
		return errors.New("can only contain letters, numbers, dots, and underscores")
	case strings.Contains(s, ".."):
		return errors.New("cannot contain consecutive dots")
	case strings.Trim(s, ".") == "":
		return errors.New("cannot consist of only dots")
	case strings.Trim(s, "_") == "":
		return errors.New("cannot consist of only underscores")
	}
	return nil
})

var nameRules = []validation.Rule{
	validation.Length(0, 50).Error("is too long"),
	validation.By(func(value interface{}) error {
		v, _ := validation.Indirect(value)
		if s, ok := v.(string); ok && anyDigit.MatchString(s) {
			return errors.New("cannot contain numbers")
		}
		return nil
	}),
}

// bcrypt only reads the first 72 bytes of a password.
var passwordRules = []validation.Rule{
	validation.Required.Error("is required"),
	validation.Length(8, 0).Error("must have at least 8 characters"),
	validation.Length(0, utils.MaxPasswordBytes).Error("must have at most 72 characters"),
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *registerRequest) normalize() {
	trim(&r.Name)
	trim(&r.Username)
	trim(&r.Email)
	trim(&r.Password)
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, append([]validation.Rule{validation.Required.Error("is required")}, nameRules...)...),
		validation.Field(&r.Username, validation.Required.Error("is required"), usernameRule),
		validation.Field(&r.Email, validation.Required.Error("is required"), is.Email.Error("must be a valid email")),
		validation.Field(&r.Password, passwordRules...),
	)
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) normalize() {
	trim(&r.Username)
	trim(&r.Email)
	trim(&r.Password)
}

func (r loginRequest) Validate() error {
	identity := validation.By(func(interface{}) error {
		if r.Username == "" && r.Email == "" {
			return errors.New("username or email is required")
		}
		return nil
	})
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, identity, usernameRule),
		validation.Field(&r.Email, is.Email.Error("must be a valid email")),
		validation.Field(&r.Password, passwordRules...),
	)
}

type updateRequest struct {
	Name      *string `json:"name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

func (r *updateRequest) normalize() {
	trim(r.Name)
	trim(r.Username)
	trim(r.Email)
	trim(r.Bio)
	trim(r.AvatarURL)
}

func (r updateRequest) Validate() error {
	notEmpty := validation.NilOrNotEmpty.Error("cannot be empty")
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, append([]validation.Rule{notEmpty}, nameRules...)...),
		validation.Field(&r.Username, notEmpty, usernameRule),
		validation.Field(&r.Email, notEmpty, is.Email.Error("must be a valid email")),
		validation.Field(&r.AvatarURL, is.URL.Error("must be an url")),
	)
}

func (r updateRequest) input() service.UpdateInput {
	return service.UpdateInput{
		Name:      r.Name,
		Username:  r.Username,
		Email:     r.Email,
		AvatarURL: r.AvatarURL,
		Bio:       r.Bio,
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r *changePasswordRequest) normalize() {
	trim(&r.OldPassword)
	trim(&r.NewPassword)
}

func (r changePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword,
			validation.Required.Error("is required"),
			validation.Length(0, utils.MaxPasswordBytes).Error("must have at most 72 characters"),
		),
		validation.Field(&r.NewPassword, passwordRules...),
	)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *forgotPasswordRequest) normalize() { trim(&r.Email) }

func (r forgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("is required"), is.Email.Error("must be a valid email")),
	)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r *resetPasswordRequest) normalize() {
	trim(&r.Token)
	trim(&r.Password)
}

func (r resetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required.Error("is required"), is.UUID.Error("must be a valid uuid")),
		validation.Field(&r.Password, passwordRules...),
	)
}

type checkRequest struct {
	Field string `json:"field" query:"field"`
	Value string `json:"value" query:"value"`
}

func (r *checkRequest) normalize() {
	trim(&r.Field)
	trim(&r.Value)
}

func (r checkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Field, validation.Required.Error("is required"), validation.In("username", "email").Error("must be one of username, email")),
		validation.Field(&r.Value, validation.Required.Error("is required")),
	)
}

type deleteUserRequest struct {
	Code string `json:"code"`
}

func (r *deleteUserRequest) normalize() { trim(&r.Code) }

func (r deleteUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("is required"),
			validation.Length(5, 5).Error("must have 5 numbers"),
			is.Digit.Error("must be numeric"),
		),
	)
}

type storageTokenRequest struct {
	Type    string `json:"type"`
	Context string `json:"context"`
}

func (r *storageTokenRequest) normalize() {
	trim(&r.Type)
	trim(&r.Context)
}

func (r storageTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required.Error("is required"), validation.In(toAny(service.StorageTypes)...).Error("is not supported")),
		validation.Field(&r.Context, validation.Required.Error("is required"), validation.In(toAny(service.StorageContexts)...).Error("is not supported")),
	)
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
