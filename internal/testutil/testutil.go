// Package testutil builds in-memory databases, configuration and fixtures
// for package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/database"
	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/messaging"
)

// Models lists every table in creation order.
var Models = []any{
	(*entity.Seller)(nil),
	(*entity.Client)(nil),
	(*entity.Category)(nil),
	(*entity.Product)(nil),
	(*entity.Order)(nil),
	(*entity.OrderLine)(nil),
	(*entity.GlobalParams)(nil),
}

// Open returns connections to a private, empty in-memory SQLite database. A
// single connection backs both pools, so code under test must not read
// outside an open transaction.
func Open(t testing.TB) *database.Connections {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return &database.Connections{Writer: db, Reader: db}
}

// DB is Open with every table created from the bun models.
func DB(t testing.TB) *database.Connections {
	t.Helper()

	conns := Open(t)
	ctx := context.Background()
	for _, model := range Models {
		_, err := conns.Writer.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	return conns
}

// FileDB returns connections to a SQLite file in a temporary directory with
// conns pooled connections, configured the way the sqlite driver is in
// production. Use it for tests that exercise concurrent writers.
func FileDB(t testing.TB, conns int) *database.Connections {
	t.Helper()

	dsn := database.SQLiteDSN("file:" + filepath.Join(t.TempDir(), "ledger.db"))
	sqldb, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(conns)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range Models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	return &database.Connections{Writer: db, Reader: db}
}

// Config returns a configuration with noop cache, messaging enabled against
// a fake publisher and the stock ledger defaults.
func Config() config.Config {
	return config.Config{
		Cache: config.Cache{Driver: "noop", DefaultTTL: time.Minute, OrderTTL: time.Minute},
		Messaging: config.Messaging{
			Enabled: true,
			Driver:  "kafka",
			Kafka:   config.Kafka{Topic: "deposito.ledger"},
		},
		Database: config.Database{Driver: "sqlite"},
		Ledger: config.Ledger{
			DefaultTaxPercent:      21,
			DefaultDiscountPercent: 0,
			DefaultMaxGroup:        4,
		},
		Transfer: config.Transfer{MaxUploadBytes: 1 << 20},
	}
}

// Publisher is an in-memory messaging.Client that records published values.
type Publisher struct {
	mu       sync.Mutex
	messages []messaging.Message
	Err      error
}

// Publish records the message, or fails with p.Err when set.
func (p *Publisher) Publish(_ context.Context, key []byte, value []byte, headers ...messaging.Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	msg := messaging.Message{
		Topic: p.Topic(),
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
		Time:  time.Now().UTC(),
	}
	if len(headers) > 0 {
		msg.Headers = make(map[string]string, len(headers))
		for _, h := range headers {
			msg.Headers[h.Key] = h.Value
		}
	}
	p.messages = append(p.messages, msg)
	return nil
}

// Consume blocks until ctx ends.
func (p *Publisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

// Topic returns the fixed test topic.
func (p *Publisher) Topic() string { return "deposito.ledger" }

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []messaging.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.Message(nil), p.messages...)
}

// Seller inserts a seller.
func Seller(t testing.TB, conns *database.Connections, email string, admin bool) *entity.Seller {
	t.Helper()
	s := &entity.Seller{Name: email, Email: email, Admin: admin}
	_, err := conns.Writer.NewInsert().Model(s).Exec(context.Background())
	require.NoError(t, err)
	return s
}

// Client inserts a client owned by sellerID.
func Client(t testing.TB, conns *database.Connections, name, cif string, sellerID int64) *entity.Client {
	t.Helper()
	c := &entity.Client{Name: name, CIF: cif, SellerID: sellerID}
	_, err := conns.Writer.NewInsert().Model(c).Exec(context.Background())
	require.NoError(t, err)
	return c
}

// Category inserts an active category.
func Category(t testing.TB, conns *database.Connections, name string) *entity.Category {
	t.Helper()
	c := &entity.Category{Name: entity.NormalizeCategoryName(name), Active: true}
	_, err := conns.Writer.NewInsert().Model(c).Exec(context.Background())
	require.NoError(t, err)
	return c
}

// Product inserts an active product with the given base price.
func Product(t testing.TB, conns *database.Connections, description, price string, categoryID int64) *entity.Product {
	t.Helper()
	p := &entity.Product{
		Description: description,
		Price:       decimal.RequireFromString(price),
		CategoryID:  categoryID,
		Active:      true,
	}
	_, err := conns.Writer.NewInsert().Model(p).Exec(context.Background())
	require.NoError(t, err)
	return p
}

// Order inserts an order with a preset gross total, bypassing the ledger.
// Use it for read-side tests only.
func Order(t testing.TB, conns *database.Connections, clientID int64, date time.Time, gross string, finalized bool) *entity.Order {
	t.Helper()
	o := &entity.Order{
		Date:            date.UTC(),
		ClientID:        clientID,
		Finalized:       finalized,
		DiscountPercent: 0,
		TaxPercent:      21,
		GrossTotal:      decimal.RequireFromString(gross),
	}
	_, err := conns.Writer.NewInsert().Model(o).Exec(context.Background())
	require.NoError(t, err)
	return o
}
