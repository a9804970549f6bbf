package seeder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	clientrepo "github.com/gestorventas/deposito/internal/repository/client"
	paramsrepo "github.com/gestorventas/deposito/internal/repository/params"
	"github.com/gestorventas/deposito/internal/testutil"
)

func TestSeederIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conns := testutil.DB(t)
	catalog := catalogrepo.NewRepository(conns)
	clients := clientrepo.NewRepository(conns)
	params := paramsrepo.NewRepository(conns)

	s := New(Params{
		Catalog: catalog,
		Clients: clients,
		Params:  params,
		Config:  testutil.Config(),
		Logger:  zap.NewNop(),
	})

	require.NoError(t, s.All(ctx))
	require.NoError(t, s.All(ctx))

	stored, err := params.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored.TaxPercent)
	assert.Equal(t, 21, *stored.TaxPercent)

	admin, err := clients.SellerByEmail(ctx, "admin@deposito.local")
	require.NoError(t, err)
	assert.True(t, admin.Admin)

	products, err := catalog.ListProducts(ctx, catalogrepo.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, 3)

	categories, err := catalog.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}
