package storefront

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullAddress() Address {
	return Address{
		Phone:      "+1 555 0100",
		Street:     "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
	}
}

func TestAddress_MissingFields(t *testing.T) {
	a := fullAddress()
	assert.Empty(t, a.MissingFields())
	assert.True(t, a.Complete())

	a.City = "   "
	a.Country = ""
	assert.Equal(t, []string{"city", "country"}, a.MissingFields())

	var none *Address
	assert.Len(t, none.MissingFields(), 6)
}

type fakeAddressStore struct {
	addr    *Address
	getErr  error
	saveErr error
	saves   int
	token   string
}

func (f *fakeAddressStore) GetAddress(_ context.Context, token string) (*Address, error) {
	f.token = token
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.addr, nil
}

func (f *fakeAddressStore) SaveAddress(_ context.Context, token string, addr Address) (*Address, error) {
	f.token = token
	f.saves++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.addr = &addr
	return &addr, nil
}

func signedIn() *Session {
	s := NewSession()
	s.SignIn(User{ID: "u1", Email: "buyer@example.com", Token: "tok"})
	return s
}

func TestAddressBook_Load(t *testing.T) {
	addr := fullAddress()
	store := &fakeAddressStore{addr: &addr}
	s := signedIn()

	got, err := NewAddressBook(store, s).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, addr, *got)
	assert.Equal(t, addr, *s.Address())
	assert.Equal(t, "tok", store.token)
}

func TestAddressBook_LoadNotFoundClearsCache(t *testing.T) {
	s := signedIn()
	addr := fullAddress()
	s.SetAddress(&addr)
	store := &fakeAddressStore{getErr: &APIError{StatusCode: http.StatusNotFound, Message: "No shipping address saved"}}

	got, err := NewAddressBook(store, s).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, s.Address())
}

func TestAddressBook_SaveRejectsIncomplete(t *testing.T) {
	store := &fakeAddressStore{}
	a := fullAddress()
	a.Phone = ""

	_, err := NewAddressBook(store, signedIn()).Save(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteAddress))
	assert.Equal(t, "Your shipping address is incomplete: missing phone.", err.Error())
	assert.Zero(t, store.saves)
}

func TestAddressBook_RequiresSignIn(t *testing.T) {
	_, err := NewAddressBook(&fakeAddressStore{}, NewSession()).Save(context.Background(), fullAddress())
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestSession_SignOutClearsState(t *testing.T) {
	s := signedIn()
	addr := fullAddress()
	s.SetAddress(&addr)
	s.Cart().AddItem(shirt, 1)

	s.SignOut()
	assert.Nil(t, s.User())
	assert.Nil(t, s.Address())
	assert.Empty(t, s.Cart().Items())
}
