package main

import (
	"flag"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file if present

	"github.com/coldchain-lab/smartdelivery/internal/api"
	"github.com/coldchain-lab/smartdelivery/internal/chain"
	"github.com/coldchain-lab/smartdelivery/internal/config"
	"github.com/coldchain-lab/smartdelivery/internal/logger"
	"github.com/coldchain-lab/smartdelivery/internal/orchestrator"
	"github.com/coldchain-lab/smartdelivery/internal/services"
	"github.com/coldchain-lab/smartdelivery/internal/sweeper"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func main() {
	var debug = flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zlog, err := logger.New(*debug)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize database
	var dbService services.DBService
	if cfg.PostgresURL != "" {
		dbService, err = services.NewPostgresDBService(cfg.PostgresURL)
	} else {
		dbService, err = services.NewSqliteDBService(cfg.DBPath)
	}
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	deliveryService := services.NewDeliveryService(dbService.GetDB())
	telemetryService := services.NewTelemetryService(dbService.GetDB())

	// Records cached from a previously deployed contract are invalid.
	purged, err := deliveryService.PurgeForeignContract(cfg.ContractAddress)
	if err != nil {
		zlog.Fatal("failed to purge stale deliveries", zap.Error(err))
	}
	if purged > 0 {
		zlog.Info("purged deliveries from a previous contract", zap.Int64("count", purged))
	}

	// Connect to the chain
	ethClient, err := chain.Dial(cfg.ChainRPCURL)
	if err != nil {
		zlog.Fatal("failed to connect to chain", zap.Error(err))
	}

	gateway, err := chain.NewGateway(
		ethClient,
		common.HexToAddress(cfg.ContractAddress),
		big.NewInt(cfg.ChainID),
		zlog.Named("gateway"),
	)
	if err != nil {
		zlog.Fatal("failed to initialize chain gateway", zap.Error(err))
	}

	orch := orchestrator.New(gateway, deliveryService, telemetryService, orchestrator.Config{
		ContractAddress:    cfg.ContractAddress,
		ProviderAddress:    cfg.ProviderAddress,
		DelivererAddress:   cfg.DelivererAddress,
		CustomerPrivateKey: cfg.CustomerPrivateKey,
		MinTemp:            cfg.MinTemp,
		MaxTemp:            cfg.MaxTemp,
		MinHumidity:        cfg.MinHumidity,
		MaxHumidity:        cfg.MaxHumidity,
	}, zlog.Named("orchestrator"))

	// Start the expiry sweeper
	expirySweeper := sweeper.New(gateway, deliveryService, cfg.AdminAddress, cfg.AdminPrivateKey, cfg.SweepInterval, zlog.Named("sweeper"))
	expirySweeper.Start()

	// Start the API server
	apiServer := api.NewAPIServer(orch)
	port, err := apiServer.Start(cfg.Port)
	if err != nil {
		zlog.Fatal("failed to start API server", zap.Error(err))
	}
	zlog.Info("API server started", zap.Int("port", port))

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	zlog.Info("shutting down")
	expirySweeper.Stop()
	if err := apiServer.Shutdown(); err != nil {
		zlog.Error("error shutting down API server", zap.Error(err))
	}
}
