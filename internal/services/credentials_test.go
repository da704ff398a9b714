package services

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterShop(t *testing.T) {
	store := new(mockCredentialStore)
	svc := NewCredentialService(store)

	store.On("SaveToken", mock.Anything, "demo.myshopify.com", "shpat_token", "read_orders").
		Return(nil)

	err := svc.RegisterShop(context.Background(), "demo.myshopify.com", "shpat_token", "read_orders")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRegisterShopRejectsMissingToken(t *testing.T) {
	store := new(mockCredentialStore)
	svc := NewCredentialService(store)

	err := svc.RegisterShop(context.Background(), "demo.myshopify.com", "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	store.AssertNotCalled(t, "SaveToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIsInstalled(t *testing.T) {
	store := new(mockCredentialStore)
	svc := NewCredentialService(store)

	store.On("GetToken", mock.Anything, "demo.myshopify.com").Return("shpat_token", nil)
	store.On("GetToken", mock.Anything, "ghost.myshopify.com").Return("", nil)

	installed, err := svc.IsInstalled(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.True(t, installed)

	installed, err = svc.IsInstalled(context.Background(), "ghost.myshopify.com")
	require.NoError(t, err)
	assert.False(t, installed)
}
