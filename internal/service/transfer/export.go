package transfer

import (
	"context"
	"io"
	"strconv"

	"github.com/gestorventas/deposito/internal/entity"

	"github.com/gestorventas/deposito/internal/money"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
)

var (
	categoryHeader = []string{"ID", "NOMBRE"}
	productHeader  = []string{"ID", "DESCRIPCION", "PRECIO", "CATEGORIA"}
	clientHeader   = []string{"ID", "NOMBRE", "CIF", "VENDEDOR"}
	orderHeader    = []string{"ID", "FECHA", "CLIENTE", "CIF", "VENDEDOR", "FINALIZADO", "BRUTO", "DESCUENTO", "BASE", "IVA", "TOTAL"}
)

// ExportCategories writes every active category.
func (s *Service) ExportCategories(ctx context.Context, dst io.Writer) error {
	ctx, span := serviceTracer.Start(ctx, "TransferService.ExportCategories")
	defer span.End()

	categories, err := s.catalog.ListCategories(ctx, true)
	if err != nil {
		return internal(span, "failed to list categories", err)
	}
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name})
	}
	return writeRecords(dst, categoryHeader, rows)
}

// ExportProducts writes every active product with its category name.
func (s *Service) ExportProducts(ctx context.Context, dst io.Writer) error {
	ctx, span := serviceTracer.Start(ctx, "TransferService.ExportProducts")
	defer span.End()

	products, err := s.catalog.ListProducts(ctx, catalogrepo.ProductFilter{})
	if err != nil {
		return internal(span, "failed to list products", err)
	}
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Description,
			money.Format(p.Price),
			category,
		})
	}
	return writeRecords(dst, productHeader, rows)
}

// ExportClients writes every client with its seller's email.
func (s *Service) ExportClients(ctx context.Context, dst io.Writer) error {
	ctx, span := serviceTracer.Start(ctx, "TransferService.ExportClients")
	defer span.End()

	clients, err := s.clients.ListClientsWithSeller(ctx)
	if err != nil {
		return internal(span, "failed to list clients", err)
	}
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		seller := ""
		if c.Seller != nil {
			seller = c.Seller.Email
		}
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, c.CIF, seller})
	}
	return writeRecords(dst, clientHeader, rows)
}

// ExportOrders writes every order with its client, seller and derived totals.
func (s *Service) ExportOrders(ctx context.Context, dst io.Writer) error {
	ctx, span := serviceTracer.Start(ctx, "TransferService.ExportOrders")
	defer span.End()

	orders, err := s.orders.ListOrdersWithClient(ctx)
	if err != nil {
		return internal(span, "failed to list orders", err)
	}
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, orderRow(o))
	}
	return writeRecords(dst, orderHeader, rows)
}

func orderRow(o *entity.Order) []string {
	var client, cif, seller string
	if o.Client != nil {
		client, cif = o.Client.Name, o.Client.CIF
		if o.Client.Seller != nil {
			seller = o.Client.Seller.Email
		}
	}
	finalized := "NO"
	if o.Finalized {
		finalized = "SI"
	}
	totals := o.Totals()
	return []string{
		strconv.FormatInt(o.ID, 10),
		o.Date.Format("2006-01-02"),
		client,
		cif,
		seller,
		finalized,
		money.Format(totals.Gross),
		strconv.Itoa(o.DiscountPercent),
		money.Format(totals.Base),
		money.Format(totals.Tax),
		money.Format(totals.Total),
	}
}
