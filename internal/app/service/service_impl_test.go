package service

import (
	"context"
	"testing"
	"time"

	"github.com/happybase/portal/internal/app/domain"
	"github.com/happybase/portal/internal/app/repository"
	"github.com/happybase/portal/internal/clock"
	"github.com/happybase/portal/internal/config"
	"github.com/happybase/portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	cat, err := config.NewCatalog(config.DefaultCatalogEntries())
	require.NoError(t, err)
	return New(Params{
		DB:      testutil.OpenDB(t),
		Log:     zaptest.NewLogger(t),
		GenID:   testutil.Snowflake(t),
		Clock:   clock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Repo:    repository.Provide(),
		Catalog: config.NewStaticCatalogHolder(cat),
	})
}

func TestCreateCatalogApp(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		CreatorID: "user_1",
		Name:      "coda",
		URL:       "https://coda.io/d/Growth_dAbc",
	})
	require.NoError(t, err)
	assert.Equal(t, "Coda", resp.Name)
	assert.Equal(t, "coda", resp.CatalogKey)
	assert.NotEmpty(t, resp.ID)

	got, err := svc.Get(context.Background(), "user_1", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://coda.io/d/Growth_dAbc", got.URL)
}

func TestCreateRejectsForeignDomain(t *testing.T) {
	svc := newTestService(t)

	cases := []string{
		"https://evil.example.com/coda.io",
		"https://evilcoda.io/d/x",
	}
	for _, raw := range cases {
		_, err := svc.Create(context.Background(), domain.CreateRequest{CreatorID: "user_1", Name: "Coda", URL: raw})
		assert.ErrorIs(t, err, domain.ErrDomainMismatch, raw)
	}

	_, err := svc.Create(context.Background(), domain.CreateRequest{CreatorID: "user_1", Name: "Hex", URL: "https://app.hex.tech/p/1"})
	assert.NoError(t, err)
}

func TestCreateCustomAppRequiresHTTPURL(t *testing.T) {
	svc := newTestService(t)

	for _, raw := range []string{"ftp://files.example.com", "not a url", "/relative/path", "javascript:alert(1)"} {
		_, err := svc.Create(context.Background(), domain.CreateRequest{CreatorID: "user_1", Name: "My Tool", URL: raw})
		assert.ErrorIs(t, err, domain.ErrInvalidURL, raw)
	}

	resp, err := svc.Create(context.Background(), domain.CreateRequest{CreatorID: "user_1", Name: "My Tool", URL: "http://tool.example.com"})
	require.NoError(t, err)
	assert.Empty(t, resp.CatalogKey)
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{CreatorID: "user_1", Name: "Miro", URL: "https://miro.com/app/board/1"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "user_2", resp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(context.Background(), "user_2", resp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), "user_1", resp.ID))

	items, err := svc.List(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Get(context.Background(), "user_1", "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCatalogListsEntries(t *testing.T) {
	svc := newTestService(t)
	entries := svc.Catalog()
	require.Len(t, entries, 9)
	assert.Equal(t, "observablehq.com", entries[8].Domain)
}
