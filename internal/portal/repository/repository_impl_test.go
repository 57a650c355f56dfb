package repository

import (
	"context"
	"testing"
	"time"

	"github.com/happybase/portal/internal/portal/domain"
	productdomain "github.com/happybase/portal/internal/product/domain"
	"github.com/happybase/portal/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndFindPortal(t *testing.T) {
	db := testutil.OpenDB(t)
	r := Provide()
	token := "tok_1"

	err := r.Insert(context.Background(), db, &domain.Portal{
		ID:            42,
		CreatorID:     "user_1",
		URL:           "https://wiki.example.com",
		ProductID:     "prod_1",
		Merchant:      "acct_1",
		Price:         decimal.RequireFromString("5.00"),
		Interval:      productdomain.IntervalQuarterly,
		StripePriceID: "price_1",
		PaymentLink:   "https://buy.stripe.com/x",
		AccessToken:   &token,
		CreatedAt:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	got, err := r.FindByID(context.Background(), db, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, productdomain.IntervalQuarterly, got.Interval)
	assert.Equal(t, "price_1", got.StripePriceID)
	require.NotNil(t, got.AccessToken)
	assert.Equal(t, token, *got.AccessToken)

	missing, err := r.FindByID(context.Background(), db, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
