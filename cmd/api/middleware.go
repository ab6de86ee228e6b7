package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/safar/go-commerce/internal/auth"
	"github.com/safar/go-commerce/internal/database"
	"github.com/safar/go-commerce/internal/models"
	"github.com/safar/go-commerce/internal/store"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, claims *auth.Claims)

// requireAuth verifies the bearer token and passes the claims through.
func (s *server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.claimsFromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r, claims)
	}
}

func (s *server) requireAdmin(next authedHandler) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
		if claims.Role != models.RoleAdmin {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, claims)
	})
}

func (s *server) claimsFromRequest(r *http.Request) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, auth.ErrInvalidToken
	}
	return s.tokens.Verify(token)
}

// ownerOrAdmin gates access to a resource belonging to customerID.
func ownerOrAdmin(claims *auth.Claims, customerID int64) bool {
	return claims.Role == models.RoleAdmin || claims.CustomerID == customerID
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps the core's typed errors to HTTP statuses. The
// kinds stay inspectable: insufficient-stock responses carry the product
// name and quantities.
func (s *server) respondStoreError(w http.ResponseWriter, err error) {
	var stockErr *store.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "insufficient stock",
			"product":   stockErr.ProductName,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrNotCancellable),
		errors.Is(err, database.ErrDuplicateEmail),
		errors.Is(err, database.ErrOptimisticLockFailed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.log.WithError(err).Error("internal error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
