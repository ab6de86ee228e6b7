package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/go-commerce/internal/database"
	"github.com/safar/go-commerce/internal/models"
	"github.com/safar/go-commerce/internal/store"
)

func TestCreateAndGetCustomer(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	created, err := store.CreateCustomer(ctx, db, store.CreateCustomerRequest{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		Phone:        "555-0100",
		Address:      "12 Analytical Lane",
	})
	if err != nil {
		t.Fatalf("Create customer: %v", err)
	}

	if created.Role != models.RoleUser {
		t.Errorf("Expected default role user, got %s", created.Role)
	}

	fetched, err := store.GetCustomer(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("Get customer: %v", err)
	}
	if fetched.Email != "ada@example.com" {
		t.Errorf("Expected email ada@example.com, got %s", fetched.Email)
	}

	byEmail, err := store.GetCustomerByEmail(ctx, db, "ada@example.com")
	if err != nil {
		t.Fatalf("Get customer by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("Expected customer %d, got %d", created.ID, byEmail.ID)
	}
}

func TestDuplicateEmail(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	createTestCustomer(t, db, "dup@example.com")

	_, err := store.CreateCustomer(ctx, db, store.CreateCustomerRequest{
		FirstName:    "Other",
		LastName:     "Person",
		Email:        "dup@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, database.ErrDuplicateEmail) {
		t.Errorf("Expected duplicate email error, got: %v", err)
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := store.GetCustomer(ctx, db, 99999)
	if !errors.Is(err, database.ErrCustomerNotFound) {
		t.Errorf("Expected customer not found, got: %v", err)
	}

	_, err = store.GetCustomerByEmail(ctx, db, "nobody@example.com")
	if !errors.Is(err, database.ErrCustomerNotFound) {
		t.Errorf("Expected customer not found, got: %v", err)
	}
}

func TestListCustomers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		createTestCustomer(t, db, email)
	}

	page, err := store.ListCustomers(ctx, db, 1, 2)
	if err != nil {
		t.Fatalf("List customers: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("Expected 3 customers, got %d", page.Total)
	}
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 pages, got %d", page.TotalPages)
	}
	if len(page.Items.([]models.Customer)) != 2 {
		t.Errorf("Expected 2 customers on page 1, got %d", len(page.Items.([]models.Customer)))
	}
}
