package repository

import (
	"testing"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
)

func TestAccessTokenRepositoryFindUsableScopes(t *testing.T) {
	db := setupRepositoryTestDB(t, "token_find")
	repo := NewAccessTokenRepository(db)
	tenant := createRepositoryTenant(t, db, "bistro")
	now := time.Now().UTC().Truncate(time.Second)
	expired := now.Add(-time.Minute)

	tokens := []*models.AccessToken{
		{TenantID: tenant.ID, Kind: constants.TokenKindTable, ResourceID: 1, TokenHash: "hash-live"},
		{TenantID: tenant.ID, Kind: constants.TokenKindTable, ResourceID: 1, TokenHash: "hash-expired", ExpiresAt: &expired},
	}
	for _, token := range tokens {
		if err := repo.Create(token); err != nil {
			t.Fatalf("create token failed: %v", err)
		}
	}

	found, err := repo.FindUsable(tenant.ID, "hash-live", constants.TokenKindTable, now)
	if err != nil || found == nil || found.ID != tokens[0].ID {
		t.Fatalf("live token should be found, got %+v, %v", found, err)
	}
	if found, _ := repo.FindUsable(tenant.ID, "hash-live", constants.TokenKindDelivery, now); found != nil {
		t.Fatalf("token kind must match")
	}
	if found, _ := repo.FindUsable(tenant.ID+1, "hash-live", constants.TokenKindTable, now); found != nil {
		t.Fatalf("token must not resolve in another tenant")
	}
	if found, _ := repo.FindUsable(tenant.ID, "hash-expired", constants.TokenKindTable, now); found != nil {
		t.Fatalf("expired token must not be usable")
	}

	ok, err := repo.Revoke(tenant.ID, tokens[0].ID, now)
	if err != nil || !ok {
		t.Fatalf("revoke failed: %v, %v", ok, err)
	}
	ok, err = repo.Revoke(tenant.ID, tokens[0].ID, now)
	if err != nil || ok {
		t.Fatalf("second revoke should be a no-op, got %v, %v", ok, err)
	}
	if found, _ := repo.FindUsable(tenant.ID, "hash-live", constants.TokenKindTable, now); found != nil {
		t.Fatalf("revoked token must not be usable")
	}

	list, err := repo.ListByResource(tenant.ID, constants.TokenKindTable, 1)
	if err != nil || len(list) != 2 {
		t.Fatalf("list by resource want 2 got %d, %v", len(list), err)
	}
}
