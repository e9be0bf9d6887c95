// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmacore/internal/core/numerator"
	"pharmacore/internal/core/security"
	"pharmacore/internal/domain/account"
	"pharmacore/internal/domain/alerts"
	"pharmacore/internal/domain/allocation"
	"pharmacore/internal/domain/auth"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/domain/catalogs/customer"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/domain/documents/purchase_invoice"
	"pharmacore/internal/domain/documents/purchase_return"
	"pharmacore/internal/domain/documents/sale_invoice"
	"pharmacore/internal/domain/documents/sales_return"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
	"pharmacore/internal/infrastructure/http/v1/handlers"
	"pharmacore/internal/infrastructure/http/v1/middleware"
	"pharmacore/internal/infrastructure/storage/postgres"
	"pharmacore/internal/infrastructure/storage/postgres/account_repo"
	"pharmacore/internal/infrastructure/storage/postgres/batch_repo"
	"pharmacore/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmacore/internal/infrastructure/storage/postgres/document_repo"
	"pharmacore/internal/infrastructure/storage/postgres/ledger_repo"
	"pharmacore/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager runs all repository work
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Numerator for document number generation
	Numerator numerator.Generator

	// Policy guards document lifecycle transitions. Defaults to a
	// flexible policy with no closed period.
	Policy security.ApprovalPolicy

	// Auditor records document transitions. Optional.
	Auditor posting.Auditor

	// Notifier receives low-stock alerts. Defaults to the log sink.
	Notifier alerts.Notifier
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1. Every route below may touch the database, so the
	// TxManager is injected before anything else.
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Transaction(cfg.TxManager))
	{
		registerAuthRoutes(v1, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		protected.Use(middleware.UserContext())

		registerAPIRoutes(protected, cfg)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required)
	publicAuth := rg.Group("/auth")

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
	protectedAuth.Use(middleware.UserContext())

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerAPIRoutes wires repositories, services and handlers for the
// whole domain. Repos and services are created once; the TxManager is
// obtained from context per-request.
func registerAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	policy := cfg.Policy
	if policy == nil {
		policy = security.NewFlexiblePolicy(0, time.Time{})
	}

	// --- Repositories ---
	medicineRepo := catalog_repo.NewMedicineRepo()
	customerRepo := catalog_repo.NewCustomerRepo()
	supplierRepo := catalog_repo.NewSupplierRepo()
	batchRepo := batch_repo.NewBatchRepo()
	ledgerRepo := ledger_repo.NewLedgerRepo()
	accountRepo := account_repo.NewAccountRepo()
	saleRepo := document_repo.NewSaleInvoiceRepo()
	purchaseRepo := document_repo.NewPurchaseInvoiceRepo()
	salesReturnRepo := document_repo.NewSalesReturnRepo()
	purchaseReturnRepo := document_repo.NewPurchaseReturnRepo()

	// --- Shared services ---
	ledgerService := ledger.NewService(ledgerRepo)
	vaultService := account.NewService(accountRepo)
	batchService := batches.NewService(batchRepo, ledgerService, vaultService)
	alertService := alerts.NewService(medicineRepo, batchRepo, cfg.Notifier)
	allocator := allocation.NewEngine()
	engine := posting.NewEngine(policy, cfg.Auditor)

	medicineService := medicine.NewService(medicineRepo, cfg.Numerator)
	customerService := customer.NewService(customerRepo, cfg.Numerator)
	supplierService := supplier.NewService(supplierRepo, cfg.Numerator)

	// --- Catalogs ---
	catalogs := rg.Group("/catalog")
	{
		medicineHandler := handlers.NewMedicineHandler(baseHandler, medicineService)
		medicines := catalogs.Group("/medicines")
		RegisterCatalogRoutes(medicines, medicineHandler)
		medicineHandler.RegisterExtraRoutes(medicines)

		RegisterCatalogRoutes(catalogs.Group("/customers"),
			handlers.NewCustomerHandler(baseHandler, customerService))
		RegisterCatalogRoutes(catalogs.Group("/suppliers"),
			handlers.NewSupplierHandler(baseHandler, supplierService))
	}

	// --- Documents ---
	docs := rg.Group("/document")
	{
		saleService := sale_invoice.NewService(sale_invoice.ServiceConfig{
			Repo:      saleRepo,
			Engine:    engine,
			Numerator: cfg.Numerator,
			Batches:   batchRepo,
			Allocator: allocator,
			Ledger:    ledgerService,
			Vault:     vaultService,
			Customers: customerService,
			Alerts:    alertService,
		})
		handlers.NewSaleInvoiceHandler(baseHandler, saleService).
			RegisterRoutes(docs.Group("/sale-invoices"))

		purchaseService := purchase_invoice.NewService(purchase_invoice.ServiceConfig{
			Repo:      purchaseRepo,
			Engine:    engine,
			Numerator: cfg.Numerator,
			Batches:   batchRepo,
			Ledger:    ledgerService,
			Vault:     vaultService,
			Suppliers: supplierService,
		})
		handlers.NewPurchaseInvoiceHandler(baseHandler, purchaseService).
			RegisterRoutes(docs.Group("/purchase-invoices"))

		salesReturnService := sales_return.NewService(sales_return.ServiceConfig{
			Repo:      salesReturnRepo,
			Engine:    engine,
			Numerator: cfg.Numerator,
			Sales:     saleRepo,
			Batches:   batchRepo,
			Ledger:    ledgerService,
			Vault:     vaultService,
			Customers: customerService,
		})
		handlers.NewSalesReturnHandler(baseHandler, salesReturnService).
			RegisterRoutes(docs.Group("/sales-returns"))

		purchaseReturnService := purchase_return.NewService(purchase_return.ServiceConfig{
			Repo:      purchaseReturnRepo,
			Engine:    engine,
			Numerator: cfg.Numerator,
			Purchases: purchaseRepo,
			Batches:   batchRepo,
			Ledger:    ledgerService,
			Vault:     vaultService,
			Suppliers: supplierService,
		})
		handlers.NewPurchaseReturnHandler(baseHandler, purchaseReturnService).
			RegisterRoutes(docs.Group("/purchase-returns"))
	}

	// --- Inventory and money ---
	handlers.NewBatchHandler(baseHandler, batchService).
		RegisterRoutes(rg.Group("/batches"))
	handlers.NewStockHandler(baseHandler, ledgerService).
		RegisterRoutes(rg.Group("/stock"))
	handlers.NewVaultHandler(baseHandler, vaultService).
		RegisterRoutes(rg.Group("/vault"))
}
