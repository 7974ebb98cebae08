package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/repository"
	"github.com/shopcart/storefront/services/checkout-service/services"
)

type mockAddressRepo struct {
	stored    map[string]*models.Address
	upsertErr error
	upserts   int
}

func (m *mockAddressRepo) FindByUserEmail(_ context.Context, email string) (*models.Address, error) {
	a, ok := m.stored[email]
	if !ok {
		return nil, repository.ErrAddressNotFound
	}
	return a, nil
}

func (m *mockAddressRepo) Upsert(_ context.Context, addr *models.Address) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	if m.stored == nil {
		m.stored = map[string]*models.Address{}
	}
	m.stored[addr.UserEmail] = addr
	return nil
}

func TestAddressService_GetMissing(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	svc := services.NewAddressService(&mockAddressRepo{}, logger)

	_, svcErr := svc.GetAddress(context.Background(), "ana@example.com")
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestAddressService_SaveAndGet(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	repo := &mockAddressRepo{}
	svc := services.NewAddressService(repo, logger)

	saved, svcErr := svc.SaveAddress(context.Background(), "Ana@Example.com", completeAddress())
	require.Nil(t, svcErr)
	assert.Equal(t, "ana@example.com", saved.UserEmail)

	got, svcErr := svc.GetAddress(context.Background(), "ana@example.com")
	require.Nil(t, svcErr)
	assert.Equal(t, "Austin", got.City)
}

func TestAddressService_SaveRejectsIncomplete(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	repo := &mockAddressRepo{}
	svc := services.NewAddressService(repo, logger)

	addr := completeAddress()
	addr.Street = ""
	_, svcErr := svc.SaveAddress(context.Background(), "ana@example.com", addr)
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Equal(t, "Shipping address is incomplete: missing street", svcErr.Message)
	assert.Zero(t, repo.upserts)

	repo.upsertErr = errors.New("db down")
	_, svcErr = svc.SaveAddress(context.Background(), "ana@example.com", completeAddress())
	require.NotNil(t, svcErr)
	assert.Equal(t, 500, svcErr.StatusCode)
}
