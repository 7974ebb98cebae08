package storefront

import "sync"

// User is the signed-in account. Token is the bearer token sent to the backend.
type User struct {
	ID    string
	Email string
	Token string
}

// Session is the per-login state: user, cart and cached shipping address.
// Create one at sign-in and drop it at sign-out.
type Session struct {
	mu      sync.RWMutex
	user    *User
	cart    *Cart
	address *Address
}

func NewSession() *Session {
	return &Session{cart: NewCart()}
}

// SignIn replaces the current user. The cart is kept so an anonymous cart
// survives login.
func (s *Session) SignIn(u User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

// SignOut forgets the user, the cart and the cached address.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.address = nil
	s.mu.Unlock()
	s.cart.Clear()
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Cart() *Cart {
	return s.cart
}

// Address returns a copy of the cached address, or nil.
func (s *Session) Address() *Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.address == nil {
		return nil
	}
	a := *s.address
	return &a
}

func (s *Session) SetAddress(a *Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		s.address = nil
		return
	}
	cp := *a
	s.address = &cp
}
