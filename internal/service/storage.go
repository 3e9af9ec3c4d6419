package service

import (
	"context"
	"slices"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/token"
)

// Storage scopes a token may grant.
var (
	StorageTypes    = []string{"avatars"}
	StorageContexts = []string{"upload", "delete"}
)

// StorageService mints short-lived tokens for the object-storage service.
type StorageService struct {
	tokens TokenIssuer
}

// NewStorageService issues storage tokens through tokens.
func NewStorageService(tokens TokenIssuer) *StorageService {
	if tokens == nil {
		panic("service: StorageService requires a token issuer")
	}
	return &StorageService{tokens: tokens}
}

// CreateToken issues a storage token for userID scoped to "<type>:<context>".
func (s *StorageService) CreateToken(_ context.Context, userID, typ, action string) (token.Signed, error) {
	if !slices.Contains(StorageTypes, typ) {
		return token.Signed{}, apperror.BadRequest("unsupported storage type")
	}
	if !slices.Contains(StorageContexts, action) {
		return token.Signed{}, apperror.BadRequest("unsupported storage context")
	}
	claims := token.Claims{Scope: typ + ":" + action}
	claims.Subject = userID
	signed, err := s.tokens.Create(claims, token.PurposeStorage)
	if err != nil {
		return token.Signed{}, apperror.Internal(err)
	}
	return signed, nil
}
