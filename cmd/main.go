// Package main runs the casino balance and ledger API.
package main

import (
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-casino/cmd/httpserver"
	"github.com/go-petr/pet-casino/internal/middleware"
	"github.com/go-petr/pet-casino/pkg/configpkg"
	"github.com/go-petr/pet-casino/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	var db *sql.DB

	if config.StorageBackend == configpkg.StoragePostgres {
		db, err = dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to database")
		}
	}

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}
	defer server.Close()

	logger.Info().Str("storage", config.StorageBackend).Msg("CASINO API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Error().Err(err).Msg("cannot start server")
	}
}
