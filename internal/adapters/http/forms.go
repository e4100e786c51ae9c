package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"astres/internal/domain/contact"
	"astres/internal/domain/event"
	"astres/internal/domain/registration"
)

// eventForm is the admin event form. An empty ID creates an event.
type eventForm struct {
	ID              string `validate:"omitempty,max=64"`
	Title           string `validate:"required,max=200"`
	Date            string `validate:"required,datetime=2006-01-02"`
	Time            string `validate:"required,datetime=15:04"`
	Location        string `validate:"max=200"`
	MaxParticipants string `validate:"required,number"`
	MinPrice        string
	Description     string `validate:"max=5000"`
	Active          bool
}

// registrationForm is the public registration form.
type registrationForm struct {
	Name    string `validate:"required,max=120"`
	Email   string `validate:"required,email,max=254"`
	Phone   string `validate:"max=40"`
	Message string `validate:"max=2000"`
}

// contactForm is the contact section form.
type contactForm struct {
	Name    string `validate:"required,max=120"`
	Email   string `validate:"required,email,max=254"`
	Message string `validate:"required,max=5000"`
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

func parseEventForm(r *http.Request) eventForm {
	return eventForm{
		ID:              formValue(r, "id"),
		Title:           formValue(r, "title"),
		Date:            formValue(r, "event_date"),
		Time:            formValue(r, "event_time"),
		Location:        formValue(r, "location"),
		MaxParticipants: formValue(r, "max_participants"),
		MinPrice:        formValue(r, "min_price"),
		Description:     formValue(r, "description"),
		Active:          r.PostFormValue("is_active") != "",
	}
}

func parseRegistrationForm(r *http.Request) registrationForm {
	return registrationForm{
		Name:    formValue(r, "name"),
		Email:   formValue(r, "email"),
		Phone:   formValue(r, "phone"),
		Message: formValue(r, "message"),
	}
}

func parseContactForm(r *http.Request) contactForm {
	return contactForm{
		Name:    formValue(r, "name"),
		Email:   formValue(r, "email"),
		Message: formValue(r, "message"),
	}
}

// eventFieldKeys maps "Field.tag" validation failures to catalogue keys.
var eventFieldKeys = map[string]string{
	"Title.required":           "event_title_required",
	"Title.max":                "event_title_too_long",
	"Date.required":            "event_date_required",
	"Date.datetime":            "event_date_required",
	"Time.required":            "event_time_invalid",
	"Time.datetime":            "event_time_invalid",
	"MaxParticipants.required": "event_capacity_invalid",
	"MaxParticipants.number":   "event_capacity_invalid",
	"Location.max":             "event_location_too_long",
	"Description.max":          "event_description_too_long",
}

// eventValidationKey returns the catalogue key for the first failing field,
// or "" when the form is valid.
func (s *Server) eventValidationKey(f eventForm) string {
	err := s.validate.Struct(f)
	if err == nil {
		return ""
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		if key, ok := eventFieldKeys[ve[0].Field()+"."+ve[0].Tag()]; ok {
			return key
		}
	}
	return "admin_event_save_error"
}

// eventErrorKey maps domain validation errors to catalogue keys. It
// returns "" for anything that is not a validation error.
func eventErrorKey(err error) string {
	switch {
	case errors.Is(err, event.ErrEmptyTitle):
		return "event_title_required"
	case errors.Is(err, event.ErrTitleTooLong):
		return "event_title_too_long"
	case errors.Is(err, event.ErrMissingDate):
		return "event_date_required"
	case errors.Is(err, event.ErrInvalidTime):
		return "event_time_invalid"
	case errors.Is(err, event.ErrInvalidCapacity):
		return "event_capacity_invalid"
	case errors.Is(err, event.ErrLocationTooLong):
		return "event_location_too_long"
	case errors.Is(err, event.ErrDescriptionTooLong):
		return "event_description_too_long"
	}
	return ""
}

func isRegistrationInvalid(err error) bool {
	for _, target := range []error{
		registration.ErrEmptyEventID, registration.ErrEmptyName, registration.ErrNameTooLong,
		registration.ErrEmptyEmail, registration.ErrInvalidEmail,
		registration.ErrPhoneTooLong, registration.ErrMessageTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isContactInvalid(err error) bool {
	return errors.Is(err, contact.ErrEmptyName) || errors.Is(err, contact.ErrInvalidEmail) ||
		errors.Is(err, contact.ErrEmptyBody) || errors.Is(err, contact.ErrBodyTooLong)
}
