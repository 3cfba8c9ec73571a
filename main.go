package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"turtle-trader/config"
	"turtle-trader/daemon"
	"turtle-trader/logging"
	"turtle-trader/models"
	"turtle-trader/scheduler"
	"turtle-trader/sim"
	"turtle-trader/status"
	"turtle-trader/strategy"
	"turtle-trader/web_interface"
)

var (
	cfg    *config.Config
	logger *logging.Logger
)

// Initialize logging with the provided configuration
func initLogging() error {
	logLevel := logging.LogLevel(cfg.LogLevel)

	var err error
	logger, err = logging.NewLogger(
		cfg.LogFile,
		cfg.LogMaxSize,
		cfg.LogMaxBackups,
		cfg.LogMaxAge,
		cfg.LogCompress,
		logLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func main() {
	// .env is optional; real deployments configure through the environment.
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded settings from .env")
	}

	cfg = config.LoadConfig()

	daemonStart := flag.Bool("start-daemon", false, "Start the application as a daemon")
	daemonStop := flag.Bool("stop-daemon", false, "Stop the daemon process")
	daemonRestart := flag.Bool("restart-daemon", false, "Restart the daemon process")
	debugFlag := flag.Bool("debug", false, "enable debug logs")
	configFile := flag.String("config", "", "optional YAML config file overlaying env settings")
	flag.Parse()

	cfg.Debug = *debugFlag
	if cfg.Debug {
		cfg.LogLevel = int(logging.DEBUG)
	}

	if *configFile != "" {
		if err := cfg.ApplyFile(*configFile); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := initLogging(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	if *daemonStart || *daemonStop || *daemonRestart {
		handleDaemonCommand(*daemonStart, *daemonStop, *daemonRestart)
		return
	}

	run()
}

func handleDaemonCommand(start, stop, restart bool) {
	stripFlags := func(drop string) []string {
		var args []string
		for _, arg := range os.Args[1:] {
			if arg != drop {
				args = append(args, arg)
			}
		}
		return args
	}

	switch {
	case start:
		logger.Info("Starting daemon...")
		if err := daemon.StartDaemon(stripFlags("-start-daemon")); err != nil {
			logger.Fatal("Failed to start daemon: %v", err)
		}
	case stop:
		logger.Info("Stopping daemon...")
		if err := daemon.StopDaemon(); err != nil {
			logger.Fatal("Failed to stop daemon: %v", err)
		}
	case restart:
		logger.Info("Restarting daemon...")
		if err := daemon.RestartDaemon(stripFlags("-restart-daemon")); err != nil {
			logger.Fatal("Failed to restart daemon: %v", err)
		}
	}
}

func run() {
	logger.Info("Turtle engine starting (%d markets, %d-bar window)", models.NumMarkets(), cfg.WindowSize)

	// The built-in venue stands in for the host platform's feed, broker and
	// portfolio. A live deployment replaces it with adapters to the real
	// collaborators behind the same interfaces.
	seed := cfg.SimSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	venue := sim.NewVenue(cfg.SimStartingCash, seed)

	engineState := &models.EngineState{}
	trader := strategy.NewTrader(cfg, venue, venue, venue, engineState, logger)

	webUI := web_interface.NewWebUI(cfg.WebUIAddr, engineState, logger)
	webSrv := webUI.Start()
	statusSrv := status.StartServer(cfg, engineState, logger)

	sched := &scheduler.Scheduler{
		SessionLength: time.Duration(cfg.SessionLength),
		OpenDelay:     time.Duration(cfg.OpenDelay),
		CycleDelay:    time.Duration(cfg.CycleDelay),
		CloseLead:     time.Duration(cfg.CloseLead),
		AfterOpen:     trader.ClearStops,
		OnCycle: func() {
			venue.Step() // the sim advances one day per session
			trader.RunCycle()
			webUI.BroadcastCycle()
		},
		BeforeClose: trader.LogRisks,
		Logger:      logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received %v, shutting down...", sig)

	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if statusSrv != nil {
		_ = statusSrv.Shutdown(shutdownCtx)
	}
	if webSrv != nil {
		_ = webSrv.Shutdown(shutdownCtx)
	}
	_ = logger.Sync()
	logger.Info("Shutdown complete")
}
