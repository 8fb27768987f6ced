package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/pulldown-go/api"
	"github.com/yourusername/pulldown-go/api/handlers"
	"github.com/yourusername/pulldown-go/internal/app"
	"github.com/yourusername/pulldown-go/internal/domain"
	"github.com/yourusername/pulldown-go/internal/infrastructure"
	"github.com/yourusername/pulldown-go/pkg/logger"
)

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in the foreground (called by daemon)")
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	if !*serverMode {
		startAsDaemon()
		return
	}

	runAgent()
}

// startAsDaemon re-executes the agent detached from the terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Agent started as daemon (PID: %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func runAgent() {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	base, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := base
	streamLog, commandLog, errorLog := log, log, log

	// stream, command and error categories each get a dated JSON file
	if config.Logging.LogsDir != "" {
		multiLog, err := logger.NewMultiLogger(base, logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		defer multiLog.Close()
		streamLog, commandLog, errorLog = multiLog.Stream(), multiLog.Command(), multiLog.Error()
	}

	clientID := uuid.New().String()

	log.Info("Starting PullDown agent",
		zap.String("version", handlers.Version),
		zap.String("client_id", clientID),
		zap.String("backend", config.Backend.BaseURL),
		zap.String("addr", config.Server.Address()))

	var repo domain.FaultRepository
	if config.Diagnostics.Enabled {
		if err := os.MkdirAll(filepath.Dir(config.Diagnostics.DatabasePath), 0755); err != nil {
			log.Fatal("Failed to create diagnostics directory", zap.Error(err))
		}
		sqliteRepo, err := infrastructure.NewSQLiteFaultRepository(config.Diagnostics.DatabasePath)
		if err != nil {
			log.Fatal("Failed to initialize fault journal", zap.Error(err))
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	}
	diagnostics := app.NewDiagnostics(repo, errorLog)

	streamURL, err := config.Backend.StreamURL()
	if err != nil {
		log.Fatal("Invalid backend configuration", zap.Error(err))
	}

	decoder := infrastructure.NewEventDecoder(diagnostics, streamLog)
	stream := infrastructure.NewStreamConnection(infrastructure.StreamConfig{
		URL:              streamURL,
		ClientID:         clientID,
		HandshakeTimeout: config.Backend.HandshakeTimeout,
	}, decoder, diagnostics, streamLog)

	commands := infrastructure.NewCommandClient(infrastructure.CommandClientConfig{
		BaseURL:   config.Backend.BaseURL,
		ClientID:  clientID,
		Timeout:   config.Backend.RequestTimeout,
		RateLimit: config.Backend.CommandRateLimit,
	}, commandLog)

	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	session := app.NewSession(stream, commands, notifier, diagnostics, app.SessionConfig{
		ClientID:       clientID,
		MirrorCommands: config.Backend.MirrorCommandsToStream,
	}, commandLog)
	stream.OnStateChange(session.ConnectionChanged)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := session.Run(ctx); err != nil {
			log.Error("Session stopped with error", zap.Error(err))
		}
	}()

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		stream.Maintain(ctx, config.Backend.ReconnectDelay)
	}()

	router, closeFeed := api.SetupRouter(api.RouterConfig{
		Session:     session,
		LogsDir:     config.Logging.LogsDir,
		RecentLimit: config.Diagnostics.RecentLimit,
		Logger:      log,
	})
	defer closeFeed()

	addr := config.Server.Address()
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	cancel()
	<-streamDone
	<-sessionDone

	log.Info("Agent exited", zap.Any("faults", diagnostics.Stats()))
	log.Sync()
}
