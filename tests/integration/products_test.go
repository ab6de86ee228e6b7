package integration

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/safar/go-commerce/internal/database"
	"github.com/safar/go-commerce/internal/models"
	"github.com/safar/go-commerce/internal/store"
)

func TestConcurrentStockReservation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, db, "PRD-001", 100, 10)

	concurrency := 5
	var wg sync.WaitGroup
	failures := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
				_, err := store.ReserveStock(ctx, tx, product.ID, 2)
				if err != nil {
					return err
				}

				return store.DecrementStock(ctx, tx, product.ID, 2)
			})

			if err != nil {
				failures <- err
			}
		}()
	}

	wg.Wait()
	close(failures)

	successCount := concurrency
	for err := range failures {
		if !errors.Is(err, database.ErrInsufficientStock) {
			t.Errorf("Unexpected error: %v", err)
		}
		successCount--
	}

	finalProduct, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}

	expectedStock := 10 - (successCount * 2)
	if finalProduct.StockQuantity != expectedStock {
		t.Errorf("Expected stock %d, got %d", expectedStock, finalProduct.StockQuantity)
	}
}

func TestOptimisticLocking(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, db, "PRD-002", 100, 50)

	err := store.UpdateStockOptimistic(ctx, db, product.ID, 40, product.Version)
	if err != nil {
		t.Fatalf("First update should succeed: %v", err)
	}

	err = store.UpdateStockOptimistic(ctx, db, product.ID, 30, product.Version)
	if !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Expected optimistic lock failure, got: %v", err)
	}
}

func TestReserveStockNoWait(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, db, "PRD-003", 100, 20)

	tx1, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin tx1: %v", err)
	}
	defer func() { _ = tx1.Rollback() }()

	_, err = store.ReserveStock(ctx, tx1, product.ID, 5)
	if err != nil {
		t.Fatalf("Reserve stock in tx1: %v", err)
	}

	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin tx2: %v", err)
	}
	defer func() { _ = tx2.Rollback() }()

	_, err = store.ReserveStockNoWait(ctx, tx2, product.ID, 3)
	if !errors.Is(err, database.ErrLockTimeout) {
		t.Errorf("Expected lock timeout, got: %v", err)
	}
}

func TestListProductsByCategory(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	for i, category := range []string{"books", "books", "games"} {
		_, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
			SKU:      "PRD-CAT-" + string(rune('A'+i)),
			Name:     "Product",
			Price:    decimal.NewFromInt(10),
			Category: category,
			Stock:    1,
		})
		if err != nil {
			t.Fatalf("Create product: %v", err)
		}
	}

	page, err := store.ListProducts(ctx, db, "books", 1, 10)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Expected 2 books, got %d", page.Total)
	}
	for _, product := range page.Items.([]models.Product) {
		if product.Category != "books" {
			t.Errorf("Expected category books, got %s", product.Category)
		}
	}

	page, err = store.ListProducts(ctx, db, "", 1, 10)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("Expected 3 products without filter, got %d", page.Total)
	}
}

func TestProductValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
		SKU:   "PRD-NEG",
		Name:  "Bad",
		Price: decimal.NewFromInt(-1),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error for negative price, got: %v", err)
	}

	product := createTestProduct(t, db, "PRD-VAL", 10, 5)
	err = store.UpdateStockOptimistic(ctx, db, product.ID, -1, product.Version)
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error for negative stock, got: %v", err)
	}
}
