package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paygate/internal/app/gate"
	"paygate/internal/app/service"
	"paygate/internal/domain/entity"
	"paygate/internal/infrastructure/backend"
	"paygate/internal/infrastructure/configloader"
	networkdefinition "paygate/internal/infrastructure/network/definition"
	"paygate/internal/infrastructure/network/client"
	"paygate/internal/infrastructure/restapi"
	"paygate/internal/infrastructure/wallet"
	"paygate/internal/pkg/logger"
	"paygate/internal/pkg/metrics"
	"paygate/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "paygate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Secrets (wallet key, session token) may live in .env next to the binary.
	_ = godotenv.Load()

	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := configloader.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		zapLogger = logger.Fallback()
		zapLogger.Warn("Invalid logging config, using defaults", zap.Error(err))
	}
	defer zapLogger.Sync() // flushes buffer, if any
	logger.Install(zapLogger)
	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(registry)

	chains := networkdefinition.NewChainParametersProvider(zapLogger, cfg.ExtraChains())
	chain, ok := chains.ByIdentifier(cfg.Chain.Identifier)
	if !ok {
		return fmt.Errorf("unknown chain %q", cfg.Chain.Identifier)
	}
	home, ok := chains.ByIdentifier(cfg.Wallet.HomeChain)
	if !ok {
		return fmt.Errorf("unknown wallet home chain %q", cfg.Wallet.HomeChain)
	}
	zapLogger.Info("Payment chain selected", zap.String("chain", chain.DisplayName), zap.String("chainId", chain.ChainIDHex))

	evmClients := client.NewEVMClientProvider(
		time.Duration(cfg.Wallet.ConnectionTimeoutMs)*time.Millisecond,
		time.Duration(cfg.Wallet.RPCCallTimeoutMs)*time.Millisecond,
		zapLogger)
	defer evmClients.Close()

	detector := wallet.NewDetector(wallet.DetectorConfig{
		Mode:          cfg.Wallet.Mode,
		RPCURL:        cfg.Wallet.RPCURL,
		PrivateKeyEnv: cfg.Wallet.PrivateKeyEnv,
		Home:          home,
		ProbeTimeout:  time.Duration(cfg.Wallet.ProbeTimeoutMs) * time.Millisecond,
	}, evmClients, zapLogger)

	backendClient := backend.NewClient(backend.Config{
		BaseURL:         cfg.Backend.BaseURL,
		Timeout:         time.Duration(cfg.Backend.RequestTimeoutMillis) * time.Millisecond,
		PublicConfigTTL: time.Duration(cfg.Backend.PublicConfigTTLMinutes) * time.Minute,
	}, backend.NewEnvCredentials(cfg.Backend.AuthTokenEnv), zapLogger)

	// Warm up in parallel; neither failure is fatal, both are retried on the first payment.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 10*time.Second)
	g, gctx := errgroup.WithContext(warmCtx)
	g.Go(func() error {
		if _, err := backendClient.PublicConfig(gctx); err != nil {
			zapLogger.Warn("Public config not available yet", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		w, err := detector.Detect(gctx)
		if err != nil {
			zapLogger.Warn("Wallet detection failed", zap.Error(err))
		} else if w == nil {
			zapLogger.Warn("No wallet available, payments will ask for one", zap.String("mode", cfg.Wallet.Mode))
		}
		return nil
	})
	_ = g.Wait()
	cancelWarm()

	policy, err := service.NewBalancePolicy(cfg.Payment.BalancePolicy, zapLogger)
	if err != nil {
		return err
	}
	// One coordinator for every checkout so only one payment uses the wallet at a time.
	coordinator := service.NewPaymentCoordinator(
		service.NewNetworkGuard(chain, zapLogger),
		chain,
		policy,
		service.NewReceiptWaiter(time.Duration(cfg.Payment.ReceiptPollIntervalMs)*time.Millisecond, cfg.Payment.ReceiptPollBurst, zapLogger),
		recorder,
		zapLogger,
	)

	checkouts := make(map[entity.GatedAction]restapi.Checkout)
	for _, action := range []entity.GatedAction{entity.ActionJobPosting, entity.ActionPremium} {
		paymentGate := gate.NewPaymentGate()
		session := service.NewCheckoutSession(
			service.CheckoutConfig{Action: action, FallbackFee: cfg.FallbackFee()},
			backendClient,
			detector,
			coordinator,
			backendClient.Verifier(action),
			paymentGate,
			recorder,
			zapLogger,
		)
		checkouts[action] = restapi.Checkout{Session: session, Gate: paymentGate}
	}

	// Attempts started over HTTP run under runCtx so shutdown abandons them.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	handlers := restapi.NewHandlers(
		runCtx,
		checkouts,
		gate.NewJobPoster(checkouts[entity.ActionJobPosting].Gate, backendClient, zapLogger),
		gate.NewPremiumActivator(checkouts[entity.ActionPremium].Gate, backendClient, zapLogger),
		backendClient,
		zapLogger,
	)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := restapi.SetupRouter(handlers, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), cfg.Server.AllowOrigins, zapLogger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}
	zapLogger.Info("Shutting down server...")
	cancelRuns()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	zapLogger.Info("Server exiting")
	return nil
}
