// Package forms binds create/edit drafts to backend saves.
package forms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
	"github.com/odyssey-erp/company-manager/internal/shared"
)

// Draft is a mutable copy of an entity bound to a form. Implementations are
// pointer types; a zero DraftID means the draft has not been persisted yet.
type Draft interface {
	DraftID() int64
	Normalize()
}

// Saver persists drafts.
type Saver[D Draft] interface {
	Create(ctx context.Context, token string, draft D) error
	Update(ctx context.Context, token string, id int64, draft D) error
}

// InvalidMessage is shown above a form that failed client-side validation.
const InvalidMessage = "Please fill in all required fields."

// Result is the outcome of a submit.
type Result struct {
	Saved        bool
	FieldErrors  map[string]string
	Message      string
	Unauthorized bool
	Err          error
}

// Controller validates and submits drafts of one entity type.
type Controller[D Draft] struct {
	saver    Saver[D]
	validate *validator.Validate
	decoder  *form.Decoder
}

// NewController constructs a Controller.
func NewController[D Draft](saver Saver[D]) *Controller[D] {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Controller[D]{saver: saver, validate: v, decoder: form.NewDecoder()}
}

// Decode fills draft from submitted form values. Values that do not fit
// their field, such as a non-numeric id, come back as field errors keyed by
// form field name; the rest of the draft is still filled.
func (c *Controller[D]) Decode(values url.Values, draft D) (map[string]string, error) {
	err := c.decoder.Decode(draft, values)
	draft.Normalize()
	if err == nil {
		return nil, nil
	}
	var decodeErrs form.DecodeErrors
	if !errors.As(err, &decodeErrs) {
		return nil, fmt.Errorf("forms: decode: %w", err)
	}
	out := make(map[string]string, len(decodeErrs))
	for field := range decodeErrs {
		out[field] = "This value is not valid."
	}
	return out, nil
}

// Validate returns field errors keyed by form field name.
func (c *Controller[D]) Validate(draft D) map[string]string {
	err := c.validate.Struct(draft)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"general": err.Error()}
	}
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

// Submit validates draft and, when valid, creates or updates it. No request
// reaches the backend for an invalid draft.
func (c *Controller[D]) Submit(ctx context.Context, token string, draft D) Result {
	draft.Normalize()
	if errs := c.Validate(draft); len(errs) > 0 {
		return Result{FieldErrors: errs, Message: InvalidMessage}
	}
	var err error
	if id := draft.DraftID(); id == 0 {
		err = c.saver.Create(ctx, token, draft)
	} else {
		err = c.saver.Update(ctx, token, id, draft)
	}
	if err != nil {
		return Result{
			Err:          err,
			Message:      shared.UserSafeMessage(err),
			Unauthorized: apiclient.IsUnauthorized(err),
		}
	}
	return Result{Saved: true}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	default:
		return "This value is not valid."
	}
}
