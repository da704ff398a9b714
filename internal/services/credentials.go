package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// credentialWriter persists shop credentials
type credentialWriter interface {
	GetToken(ctx context.Context, shop string) (string, error)
	SaveToken(ctx context.Context, shop, accessToken, scopes string) error
}

// CredentialService registers and inspects shop credentials. The OAuth dance
// itself happens upstream; this service only stores the resulting token.
type CredentialService struct {
	store credentialWriter
}

// NewCredentialService creates a new credential service
func NewCredentialService(store credentialWriter) *CredentialService {
	return &CredentialService{store: store}
}

// RegisterShop stores or replaces the access token for a shop
func (s *CredentialService) RegisterShop(ctx context.Context, shop, accessToken, scopes string) error {
	if shop == "" {
		return errors.Wrap(ErrInvalidInput, "shop is required")
	}
	if accessToken == "" {
		return errors.Wrap(ErrInvalidInput, "access token is required")
	}

	if err := s.store.SaveToken(ctx, shop, accessToken, scopes); err != nil {
		return errors.Wrapf(ErrStorageUnavailable, "save credential: %v", err)
	}

	log.Info().Str("shop", shop).Msg("Shop credential registered")
	return nil
}

// IsInstalled reports whether a shop has a stored credential
func (s *CredentialService) IsInstalled(ctx context.Context, shop string) (bool, error) {
	if shop == "" {
		return false, errors.Wrap(ErrInvalidInput, "shop is required")
	}

	token, err := s.store.GetToken(ctx, shop)
	if err != nil {
		return false, errors.Wrapf(ErrStorageUnavailable, "get credential: %v", err)
	}
	return token != "", nil
}
