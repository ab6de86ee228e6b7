package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/go-commerce/internal/auth"
	"github.com/safar/go-commerce/internal/database"
	"github.com/safar/go-commerce/internal/models"
	"github.com/safar/go-commerce/internal/store"
)

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer, err := store.CreateCustomer(r.Context(), s.db, store.CreateCustomerRequest{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         models.RoleUser,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.log.WithField("customer_id", customer.ID).Info("customer registered")
	respondJSON(w, http.StatusCreated, customer)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := store.GetCustomerByEmail(r.Context(), s.db, req.Email)
	if err != nil || !auth.CheckPassword(customer.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.Issue(customer.ID, customer.Role)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"customer": customer,
	})
}

func (s *server) handleListCustomers(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	page, pageSize := pageParams(r)

	result, err := store.ListCustomers(r.Context(), s.db, page, pageSize)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleGetCustomer(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	if !ownerOrAdmin(claims, id) {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}

	customer, err := store.GetCustomer(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, customer)
}

func (s *server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	result, err := store.ListProducts(r.Context(), s.db, r.URL.Query().Get("category"), page, pageSize)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := store.GetProduct(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

type productRequest struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
}

func (p productRequest) toStore() store.CreateProductRequest {
	return store.CreateProductRequest{
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       decimal.NewFromFloat(p.Price),
		Category:    p.Category,
		Stock:       p.Stock,
	}
}

func (s *server) handleCreateProduct(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := store.CreateProduct(r.Context(), s.db, req.toStore())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (s *server) handleUpdateProduct(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := store.UpdateProduct(r.Context(), s.db, id, req.toStore())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (s *server) handleAdjustStock(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req struct {
		Stock   int `json:"stock"`
		Version int `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateStockOptimistic(r.Context(), s.db, id, req.Stock, req.Version); err != nil {
		s.respondStoreError(w, err)
		return
	}

	product, err := store.GetProduct(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req struct {
		Items []struct {
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]store.OrderItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, store.OrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	start := time.Now()
	order, err := store.CreateOrder(r.Context(), s.db, store.CreateOrderRequest{
		CustomerID: claims.CustomerID,
		Items:      items,
	})
	if err != nil {
		s.metrics.OrderFailed(failureReason(err))
		s.respondStoreError(w, err)
		return
	}

	s.metrics.OrderCreated(time.Since(start))
	s.log.WithField("order_id", order.ID).Info("order created")
	respondJSON(w, http.StatusCreated, order)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, database.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrValidation):
		return "validation"
	case errors.Is(err, database.ErrCustomerNotFound), errors.Is(err, database.ErrProductNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// handleListOrders serves the admin listing, optionally filtered by status
// or created-at range.
func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	page, pageSize := pageParams(r)
	query := r.URL.Query()

	if statusParam := query.Get("status"); statusParam != "" {
		status, err := models.ParseOrderStatus(statusParam)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := store.ListOrdersByStatus(r.Context(), s.db, status, page, pageSize)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	if query.Get("from") != "" || query.Get("to") != "" {
		from, err := time.Parse(time.RFC3339, query.Get("from"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'from' timestamp, want RFC3339")
			return
		}
		to, err := time.Parse(time.RFC3339, query.Get("to"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'to' timestamp, want RFC3339")
			return
		}

		result, err := store.ListOrdersByDateRange(r.Context(), s.db, from, to, page, pageSize)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	result, err := store.ListOrders(r.Context(), s.db, page, pageSize)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleMyOrders(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := store.ListOrdersCursor(r.Context(), s.db, claims.CustomerID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleGetOrder(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := store.GetOrder(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if !ownerOrAdmin(claims, order.CustomerID) {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := store.UpdateOrderStatus(r.Context(), s.db, id, status)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *server) handleCancelOrder(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := store.GetOrder(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if !ownerOrAdmin(claims, order.CustomerID) {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}

	if err := store.CancelOrder(r.Context(), s.db, id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.metrics.OrderCancelled()
	s.log.WithField("order_id", id).Info("order cancelled")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleOrderStats(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	stats, err := store.OrderStats(r.Context(), s.db)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *server) handleTotalRevenue(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	revenue, err := store.TotalRevenue(r.Context(), s.db)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"total_revenue": revenue})
}
