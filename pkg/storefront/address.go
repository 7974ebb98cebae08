package storefront

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Address is the shipping address attached to an order.
type Address struct {
	Phone      string `json:"phone" validate:"required,notblank"`
	Street     string `json:"street" validate:"required,notblank"`
	City       string `json:"city" validate:"required,notblank"`
	State      string `json:"state" validate:"required,notblank"`
	PostalCode string `json:"postal_code" validate:"required,notblank"`
	Country    string `json:"country" validate:"required,notblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// MissingFields lists the json names of required fields that are blank, in
// field order. A nil address is missing everything.
func (a *Address) MissingFields() []string {
	if a == nil {
		a = &Address{}
	}
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return missing
}

// Complete reports whether every field is filled in.
func (a *Address) Complete() bool {
	return len(a.MissingFields()) == 0
}

// AddressStore is the backend address book.
type AddressStore interface {
	GetAddress(ctx context.Context, token string) (*Address, error)
	SaveAddress(ctx context.Context, token string, addr Address) (*Address, error)
}

// AddressBook keeps the session's cached address in step with the backend.
type AddressBook struct {
	store   AddressStore
	session *Session
}

func NewAddressBook(store AddressStore, session *Session) *AddressBook {
	return &AddressBook{store: store, session: session}
}

// Load fetches the saved address and caches it on the session. A user with
// no saved address gets (nil, nil).
func (b *AddressBook) Load(ctx context.Context) (*Address, error) {
	user := b.session.User()
	if user == nil {
		return nil, ErrAuthRequired
	}
	addr, err := b.store.GetAddress(ctx, user.Token)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			b.session.SetAddress(nil)
			return nil, nil
		}
		return nil, err
	}
	b.session.SetAddress(addr)
	return addr, nil
}

// Save validates addr locally, upserts it and caches the stored copy.
func (b *AddressBook) Save(ctx context.Context, addr Address) (*Address, error) {
	user := b.session.User()
	if user == nil {
		return nil, ErrAuthRequired
	}
	if missing := addr.MissingFields(); len(missing) > 0 {
		return nil, incompleteAddress(missing)
	}
	saved, err := b.store.SaveAddress(ctx, user.Token, addr)
	if err != nil {
		return nil, err
	}
	b.session.SetAddress(saved)
	return saved, nil
}

func incompleteAddress(missing []string) *CheckoutError {
	return &CheckoutError{
		Code:    CodeIncompleteAddress,
		Message: "Your shipping address is incomplete: missing " + strings.Join(missing, ", ") + ".",
	}
}
