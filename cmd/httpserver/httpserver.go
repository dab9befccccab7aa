// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-casino/internal/accountrepo"
	"github.com/go-petr/pet-casino/internal/accountservice"
	"github.com/go-petr/pet-casino/internal/admindelivery"
	"github.com/go-petr/pet-casino/internal/balancedelivery"
	"github.com/go-petr/pet-casino/internal/balancerepo"
	"github.com/go-petr/pet-casino/internal/balanceservice"
	"github.com/go-petr/pet-casino/internal/entryrepo"
	"github.com/go-petr/pet-casino/internal/eventpub"
	"github.com/go-petr/pet-casino/internal/idemcache"
	"github.com/go-petr/pet-casino/internal/ledgerservice"
	"github.com/go-petr/pet-casino/internal/memrepo"
	"github.com/go-petr/pet-casino/internal/metrics"
	"github.com/go-petr/pet-casino/internal/middleware"
	"github.com/go-petr/pet-casino/pkg/configpkg"
	"github.com/go-petr/pet-casino/pkg/moneypkg"
	"github.com/go-petr/pet-casino/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB         *sql.DB
	Engine     *gin.Engine
	Config     configpkg.Config
	TokenMaker tokenpkg.Maker
	Registry   *prometheus.Registry

	closers []func() error
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close releases the Redis and NATS connections opened by New.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}

	return errors.Join(errs...)
}

type storage struct {
	accounts accountservice.Repo
	balances balanceservice.Repo
	entries  ledgerservice.Repo
}

func newStorage(conn *sql.DB, backend string) (storage, error) {
	switch backend {
	case configpkg.StoragePostgres:
		if conn == nil {
			return storage{}, errors.New("postgres backend requires a database connection")
		}

		return storage{
			accounts: accountrepo.NewRepoPGS(conn),
			balances: balancerepo.NewRepoPGS(conn),
			entries:  entryrepo.NewRepoPGS(conn),
		}, nil
	case configpkg.StorageMemory:
		store := memrepo.New()

		return storage{accounts: store, balances: store, entries: store}, nil
	}

	return storage{}, fmt.Errorf("unsupported storage backend %q", backend)
}

// New creates Server type with instantiated domains and routes.
//
// conn may be nil when config selects the memory storage backend.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	server := &Server{
		DB:       conn,
		Config:   config,
		Registry: prometheus.NewRegistry(),
	}

	store, err := newStorage(conn, config.StorageBackend)
	if err != nil {
		return nil, err
	}

	server.TokenMaker, err = tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	server.Registry.MustRegister(collectors.NewGoCollector())

	opts := []balanceservice.Option{balanceservice.WithMetrics(metrics.New(server.Registry))}

	if config.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddress})
		server.closers = append(server.closers, rdb.Close)
		opts = append(opts, balanceservice.WithCache(idemcache.New(rdb, config.IdempotencyTTL)))
	}

	if config.NATSURL != "" {
		nc, err := eventpub.Connect(config.NATSURL)
		if err != nil {
			_ = server.Close()
			return nil, fmt.Errorf("cannot connect to nats: %w", err)
		}

		server.closers = append(server.closers, func() error { nc.Close(); return nil })
		opts = append(opts, balanceservice.WithPublisher(eventpub.New(nc, config.NATSSubject)))
	}

	accountService := accountservice.New(store.accounts)
	balanceService := balanceservice.New(store.balances, opts...)
	ledgerService := ledgerservice.New(store.entries, store.accounts)

	balanceHandler := balancedelivery.NewHandler(balanceService, ledgerService)
	adminHandler := admindelivery.NewHandler(accountService, balanceService, ledgerService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(server.Registry, promhttp.HandlerOpts{})))

	balanceRoutes := engine.Group("/balance").Use(middleware.AuthMiddleware(server.TokenMaker))

	balanceRoutes.GET("", balanceHandler.GetBalance)
	balanceRoutes.POST("/deposit", balanceHandler.Deposit)
	balanceRoutes.POST("/withdraw", balanceHandler.Withdraw)
	balanceRoutes.GET("/history", balanceHandler.History)

	adminRoutes := engine.Group("/admin").Use(middleware.AdminKey(config.AdminAPIKey))

	adminRoutes.POST("/accounts", adminHandler.CreateAccount)
	adminRoutes.GET("/accounts/:id", adminHandler.GetAccount)
	adminRoutes.PATCH("/accounts/:id/status", adminHandler.SetStatus)
	adminRoutes.POST("/accounts/:id/adjust", adminHandler.Adjust)
	adminRoutes.POST("/accounts/:id/block", adminHandler.BlockFunds)
	adminRoutes.POST("/accounts/:id/unblock", adminHandler.UnblockFunds)
	adminRoutes.GET("/accounts/:id/reconcile", adminHandler.Reconcile)
	adminRoutes.GET("/reports/transactions", adminHandler.Report)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validators := map[string]validator.Func{
			"amount":       moneypkg.ValidAmount,
			"signedamount": moneypkg.ValidSignedAmount,
			"entrytype":    balancedelivery.ValidEntryType,
			"status":       admindelivery.ValidStatus,
		}

		for tag, fn := range validators {
			if err := v.RegisterValidation(tag, fn); err != nil {
				return nil, fmt.Errorf("cannot register %s validator: %w", tag, err)
			}
		}
	}

	server.Engine = engine

	return server, nil
}
