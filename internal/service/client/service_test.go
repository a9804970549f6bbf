package client

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/entity"
	repo "github.com/gestorventas/deposito/internal/repository/client"
	orderrepo "github.com/gestorventas/deposito/internal/repository/order"
	"github.com/gestorventas/deposito/internal/testutil"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

func TestClientOwnership(t *testing.T) {
	ctx := context.Background()
	conns := testutil.DB(t)
	svc := NewService(Params{
		Repository: repo.NewRepository(conns),
		Orders:     orderrepo.NewRepository(conns),
		Logger:     zap.NewNop(),
	})
	ana := testutil.Seller(t, conns, "ana@deposito.test", false)
	luis := testutil.Seller(t, conns, "luis@deposito.test", false)

	mine, err := svc.AddClient(ctx, &ana.ID, Input{Name: " Bar Central ", CIF: "b123", SellerID: luis.ID})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, mine.SellerID, "sellers always own what they create")
	assert.Equal(t, "B123", mine.CIF)

	_, err = svc.AddClient(ctx, nil, Input{Name: "Copia", CIF: "B123", SellerID: luis.ID})
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict), "got %v", err)

	_, err = svc.AddClient(ctx, nil, Input{Name: "Huérfano", CIF: "X1", SellerID: 999})
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound), "got %v", err)

	theirs, err := svc.AddClient(ctx, nil, Input{Name: "Kiosko", CIF: "C9", SellerID: luis.ID})
	require.NoError(t, err)

	_, err = svc.GetClient(ctx, &ana.ID, theirs.ID)
	assert.True(t, errorbank.IsKind(err, errorbank.KindPermissionDenied), "got %v", err)

	listed, err := svc.ListClients(ctx, &ana.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)

	all, err := svc.ListClients(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	moved, err := svc.UpdateClient(ctx, nil, theirs.ID, Input{Name: "Kiosko Sur", CIF: "C9", SellerID: ana.ID})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, moved.SellerID)

	kept, err := svc.UpdateClient(ctx, &ana.ID, mine.ID, Input{Name: "Bar Norte", CIF: "B123", SellerID: luis.ID})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, kept.SellerID)
}

func TestDeleteClientRefusedWhileOrdersExist(t *testing.T) {
	ctx := context.Background()
	conns := testutil.DB(t)
	svc := NewService(Params{
		Repository: repo.NewRepository(conns),
		Orders:     orderrepo.NewRepository(conns),
		Logger:     zap.NewNop(),
	})
	ana := testutil.Seller(t, conns, "ana@deposito.test", false)
	client := testutil.Client(t, conns, "Bar", "B1", ana.ID)

	order := &entity.Order{Date: time.Now().UTC(), ClientID: client.ID, GrossTotal: decimal.Zero}
	_, err := conns.Writer.NewInsert().Model(order).Exec(ctx)
	require.NoError(t, err)

	err = svc.DeleteClient(ctx, &ana.ID, client.ID)
	assert.True(t, errorbank.IsKind(err, errorbank.KindInvalidState), "got %v", err)

	_, err = conns.Writer.NewDelete().Model(order).WherePK().Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteClient(ctx, &ana.ID, client.ID))

	_, err = svc.GetClient(ctx, nil, client.ID)
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound), "got %v", err)
}
