package handlers

import (
	"net/http"
	"time"

	"quickpay/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps collects what the HTTP layer talks to. Reads go straight to the
// stores; anything that moves money or writes an audit row goes through a
// service.
type Deps struct {
	Settings      Settings
	Accounts      AccountService
	Transfers     TransferService
	Adjustments   AdjustmentService
	Admin         AdminService
	Users         UserStore
	Wallets       WalletStore
	Entries       EntryStore
	Transactions  TransactionStore
	Beneficiaries BeneficiaryStore
	Audit         AuditStore
	Access        AccessStore
	Socket        BalanceSocket
	Metrics       http.Handler
	Logger        *zap.Logger
}

type Handler struct {
	cfg           Settings
	accounts      AccountService
	transfers     TransferService
	adjustments   AdjustmentService
	admin         AdminService
	users         UserStore
	wallets       WalletStore
	entries       EntryStore
	transactions  TransactionStore
	beneficiaries BeneficiaryStore
	audit         AuditStore
	access        AccessStore
	socket        BalanceSocket
	metrics       http.Handler
	logger        *zap.Logger
}

func New(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	return &Handler{
		cfg:           deps.Settings,
		accounts:      deps.Accounts,
		transfers:     deps.Transfers,
		adjustments:   deps.Adjustments,
		admin:         deps.Admin,
		users:         deps.Users,
		wallets:       deps.Wallets,
		entries:       deps.Entries,
		transactions:  deps.Transactions,
		beneficiaries: deps.Beneficiaries,
		audit:         deps.Audit,
		access:        deps.Access,
		socket:        deps.Socket,
		metrics:       metricsHandler,
		logger:        logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Observe(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", h.metrics)
	router.Get("/ws/balances", h.WSBalances)

	authenticated := chi.Chain(
		middleware.Auth(h.cfg.JWTSecret),
		middleware.RequireActive(h.access, h.logger),
	)
	timeout := h.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	router.Route("/auth", func(r chi.Router) {
		limited := r.With(middleware.RateLimit(h.cfg.LoginRatePerSecond, h.cfg.LoginBurst))
		limited.Post("/register", h.Register)
		limited.Post("/login", h.Login)
		r.With(authenticated...).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticated...)
		r.Use(chimiddleware.Timeout(timeout))

		r.Get("/users/lookup", h.LookupUser)

		r.Get("/wallet", h.GetWallet)
		r.Post("/wallet/add-funds", h.AddFunds)
		r.Get("/wallet/self-check", h.SelfCheck)
		r.Get("/wallet/entries", h.ListEntries)

		r.Post("/transactions/send", h.SendMoney)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{transactionID}", h.GetTransaction)

		r.Get("/beneficiaries", h.ListBeneficiaries)
		r.Post("/beneficiaries", h.CreateBeneficiary)
		r.Get("/beneficiaries/{id}", h.GetBeneficiary)
		r.Put("/beneficiaries/{id}", h.UpdateBeneficiary)
		r.Delete("/beneficiaries/{id}", h.DeleteBeneficiary)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated...)
		r.Use(middleware.RequireAdmin(h.access, h.logger))
		r.Use(chimiddleware.Timeout(timeout))

		r.Get("/users", h.AdminListUsers)
		r.Get("/users/{id}", h.AdminGetUser)
		r.Put("/users/{id}", h.AdminUpdateUser)
		r.Delete("/users/{id}", h.AdminDeleteUser)
		r.Get("/wallets", h.AdminListWallets)
		r.Post("/wallets/{id}/adjust", h.AdminAdjustWallet)
		r.Get("/transactions", h.AdminListTransactions)
		r.Get("/stats", h.AdminStats)
		r.Get("/audit", h.ListAuditLogs)
		r.Get("/reconcile", h.Reconcile)
	})
	return router
}
