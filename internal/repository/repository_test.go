package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fjod/easyshop/internal/checkout"
	"github.com/fjod/easyshop/internal/database"
	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.Open(ctx, database.Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return db, cleanup
}

func seedCatalog(t *testing.T, db *sql.DB) {
	_, err := db.Exec(`
		INSERT INTO categories (category_id, name, description) VALUES
			(1, 'Electronics', 'Gadgets'),
			(2, 'Fashion', 'Clothes');
		INSERT INTO products (product_id, name, price, category_id, color, stock) VALUES
			(1, 'Phone',  499.99, 1, 'Black', 10),
			(2, 'Laptop', 999.00, 1, 'Gray',  5),
			(3, 'Shirt',   19.95, 2, 'Red',   100),
			(4, 'Hat',     10.00, 2, 'black', 7);`)
	require.NoError(t, err)
}

func newOrder(userID int64) *domain.Order {
	return domain.NewOrder(userID, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		domain.ShippingAddress{Address: "1 Main", City: "Austin", State: "TX", Zip: "73301"},
		money.Zero(), money.Zero())
}

func TestProducts_Search(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, db)
	repo := NewProductRepository(db)
	ctx := context.Background()

	all, err := repo.Search(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	cat := int64(2)
	minP, maxP := money.MustParse("15"), money.MustParse("500")
	black := "BLACK"

	byCat, err := repo.Search(ctx, domain.ProductFilter{CategoryID: &cat})
	require.NoError(t, err)
	assert.Len(t, byCat, 2)

	byPrice, err := repo.Search(ctx, domain.ProductFilter{MinPrice: &minP, MaxPrice: &maxP})
	require.NoError(t, err)
	require.Len(t, byPrice, 2)
	assert.Equal(t, "499.99", byPrice[0].Price.String())

	byColor, err := repo.Search(ctx, domain.ProductFilter{Color: &black})
	require.NoError(t, err)
	assert.Len(t, byColor, 2)
}

func TestProducts_GetAndCategories(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, db)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p, err := repo.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", p.Name)
	assert.Equal(t, "19.95", p.Price.String())

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	products, err := repo.ListByCategory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = repo.ListByCategory(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestProfiles_UpsertAndLoad(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewProfileRepository(db)
	ctx := context.Background()

	_, err := repo.Load(ctx, 1)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	p := &domain.Profile{UserID: 1, FirstName: "Ada", Email: "ada@example.com",
		ShippingAddress: domain.ShippingAddress{Address: "1 Main", City: "Austin", State: "TX", Zip: "73301"}}
	require.NoError(t, repo.Upsert(ctx, p))

	p.City = "Dallas"
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *p, *got)
}

func TestTransactor_CommitWritesOrderLinesAndOutbox(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	tx := NewTransactor(db)

	order := newOrder(7)
	err := tx.WithinTx(ctx, func(ctx context.Context, s checkout.TxStores) error {
		id, err := s.Orders.Create(ctx, order)
		if err != nil {
			return err
		}
		if err := order.AssignID(id); err != nil {
			return err
		}
		for i, pid := range []int64{5, 3} {
			l := domain.NewOrderLine(id, pid, i+1, money.MustParse("2.50"), decimal.RequireFromString("0.1"))
			if err := s.Lines.Create(ctx, l); err != nil {
				return err
			}
		}
		return s.Outbox.Append(ctx, domain.EventOrderPlaced, "x", map[string]int64{"order_id": id})
	})
	require.NoError(t, err)

	orders := NewOrderRepository(db)
	got, err := orders.Get(ctx, 7, order.ID())
	require.NoError(t, err)
	require.Len(t, got.Lines(), 2)
	assert.Equal(t, int64(5), got.Lines()[0].ProductID(), "line order preserved")
	assert.Equal(t, "6.75", got.Total().String())
	assert.True(t, got.Sealed())

	events, err := NewOutboxRepository(db).GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	var payload map[string]int64
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, order.ID(), payload["order_id"])
}

// The order read back from the store must carry exactly the total that was
// placed, down to the smallest discount the cart accepts.
func TestTransactor_StoredTotalMatchesPlacedTotal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart := domain.NewCart(7)
	cart.AddOrIncrement(1, money.MustParse("100.00"), time.Now())
	cart.AddOrIncrement(2, money.MustParse("19.95"), time.Now())
	require.NoError(t, cart.SetQuantity(2, 3))
	require.NoError(t, cart.SetDiscount(1, decimal.RequireFromString("0.1234")))
	require.NoError(t, cart.SetDiscount(2, decimal.RequireFromString("0.0001")))
	require.Error(t, cart.SetDiscount(1, decimal.RequireFromString("0.12345")))

	order := newOrder(7)
	err := NewTransactor(db).WithinTx(ctx, func(ctx context.Context, s checkout.TxStores) error {
		id, err := s.Orders.Create(ctx, order)
		if err != nil {
			return err
		}
		if err := order.AssignID(id); err != nil {
			return err
		}
		for _, cl := range cart.Lines() {
			l := domain.OrderLineFromCart(id, cl)
			if err := s.Lines.Create(ctx, l); err != nil {
				return err
			}
			if err := order.AddLine(l); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.True(t, order.Total().Equal(cart.Total()))

	got, err := NewOrderRepository(db).Get(ctx, 7, order.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Total().String(), got.Total().String())
	for i, l := range got.Lines() {
		assert.True(t, l.Discount().Equal(order.Lines()[i].Discount()), "line %d", i)
	}
}

func TestTransactor_RollbackOnError(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	boom := errors.New("boom")

	err := NewTransactor(db).WithinTx(ctx, func(ctx context.Context, s checkout.TxStores) error {
		id, err := s.Orders.Create(ctx, newOrder(7))
		if err != nil {
			return err
		}
		if err := s.Lines.Create(ctx, domain.NewOrderLine(id, 1, 1, money.FromInt(1), decimal.Zero)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := NewOrderRepository(db).ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, list)

	var lines int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM order_line_items`).Scan(&lines))
	assert.Zero(t, lines)
}

func TestOrders_GetOtherUsersOrderIsNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	repo := NewOrderRepository(db)

	id, err := repo.Create(ctx, newOrder(1))
	require.NoError(t, err)

	_, err = repo.Get(ctx, 2, id)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrders_ListByUserNewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	repo := NewOrderRepository(db)

	first, err := repo.Create(ctx, newOrder(1))
	require.NoError(t, err)
	later := domain.NewOrder(1, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), domain.ShippingAddress{}, money.Zero(), money.Zero())
	second, err := repo.Create(ctx, later)
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID())
	assert.Equal(t, first, list[1].ID())
}

func TestOutbox_MarkProcessed(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	repo := NewOutboxRepository(db)

	require.NoError(t, repo.Append(ctx, domain.EventOrderPlaced, "1", map[string]string{"a": "b"}))
	require.NoError(t, repo.Append(ctx, domain.EventOrderPlaced, "2", map[string]string{"a": "c"}))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].AggregateID)

	n, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
