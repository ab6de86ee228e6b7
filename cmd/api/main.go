package main

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/safar/go-commerce/internal/auth"
	"github.com/safar/go-commerce/internal/config"
	"github.com/safar/go-commerce/internal/database"
	"github.com/safar/go-commerce/internal/metrics"
)

type server struct {
	db      *sql.DB
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
	log     *log.Entry
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	defer db.Close()

	log.Info("connected to database")

	srv := &server{
		db:      db,
		tokens:  auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
		metrics: metrics.New(),
		log:     log.WithField("component", "api"),
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.WithField("port", cfg.Server.Port).Info("server starting")
	if err := httpServer.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("GET /customers", s.requireAdmin(s.handleListCustomers))
	mux.HandleFunc("GET /customers/{id}", s.requireAuth(s.handleGetCustomer))

	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("GET /products/{id}", s.handleGetProduct)
	mux.HandleFunc("POST /products", s.requireAdmin(s.handleCreateProduct))
	mux.HandleFunc("PUT /products/{id}", s.requireAdmin(s.handleUpdateProduct))
	mux.HandleFunc("PUT /products/{id}/stock", s.requireAdmin(s.handleAdjustStock))

	mux.HandleFunc("POST /orders", s.requireAuth(s.handleCreateOrder))
	mux.HandleFunc("GET /orders", s.requireAdmin(s.handleListOrders))
	mux.HandleFunc("GET /orders/my", s.requireAuth(s.handleMyOrders))
	mux.HandleFunc("GET /orders/stats", s.requireAdmin(s.handleOrderStats))
	mux.HandleFunc("GET /orders/revenue", s.requireAdmin(s.handleTotalRevenue))
	mux.HandleFunc("GET /orders/{id}", s.requireAuth(s.handleGetOrder))
	mux.HandleFunc("PUT /orders/{id}/status", s.requireAdmin(s.handleUpdateOrderStatus))
	mux.HandleFunc("POST /orders/{id}/cancel", s.requireAuth(s.handleCancelOrder))

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
