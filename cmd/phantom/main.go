package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhead/phantom/internal/api"
	"github.com/jhead/phantom/internal/config"
	"github.com/jhead/phantom/internal/db"
	"github.com/jhead/phantom/internal/logger"
	"github.com/jhead/phantom/internal/metrics"
	"github.com/jhead/phantom/internal/ping"
	"github.com/jhead/phantom/internal/proxy"
	"github.com/jhead/phantom/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "phantom: %v\n", err)
		os.Exit(1)
	}
}

// checkPort rejects values that do not fit a UDP port instead of letting
// the uint16 conversion silently truncate them.
func checkPort(v uint) (uint16, error) {
	if v > 65535 {
		return 0, fmt.Errorf("bind_port out of range: %d", v)
	}
	return uint16(v), nil
}

func run() error {
	opts := config.Defaults()

	var configPath, logFile string
	var pingOnly bool
	flag.StringVar(&opts.Server, "server", "", "Bedrock server address to proxy, in host:port form (required)")
	flag.StringVar(&logFile, "log_file", "", "Append log output to a file instead of stderr")
	flag.BoolVar(&pingOnly, "ping", false, "Ping the server, print its advertisement, and exit")
	flag.StringVar(&opts.Bind, "bind", opts.Bind, "IP address to listen on")
	bindPort := flag.Uint("bind_port", 0, "Port to listen on, 0 to use a random port")
	flag.Uint64Var(&opts.Timeout, "timeout", opts.Timeout, "Seconds to wait before cleaning up an idle connection")
	flag.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&opts.IPv6, "6", false, "Enable IPv6 support (experimental)")
	flag.StringVar(&configPath, "config", "", "Path to a JSON config file, watched for changes")
	flag.Parse()

	port, err := checkPort(*bindPort)
	if err != nil {
		flag.Usage()
		return err
	}
	opts.BindPort = port

	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	// A config file replaces the flag values wholesale; environment
	// variables still win below.
	var cfgMgr *config.Manager
	if configPath != "" {
		fileOpts, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		opts = fileOpts
		cfgMgr = config.NewManager(opts, configPath)
	}

	if err := opts.FromEnv(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		flag.Usage()
		return err
	}

	logger.SetDebug(opts.Debug)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	if pingOnly {
		info, err := ping.Server(opts.Server, time.Duration(opts.Timeout)*time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("%s | %s/%s | %s players: %s/%s\n",
			info.MOTD, info.Edition, info.Version, info.GameMode, info.Players, info.MaxPlayers)
		return nil
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	sessions := session.NewManager()

	// Session history persists finished sessions when a database path is
	// configured.
	var sessionRepo *db.SessionRepository
	if opts.DBPath != "" {
		database, err := db.Open(opts.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Initialize(); err != nil {
			return err
		}

		sessionRepo = db.NewSessionRepository(database, opts.MaxSessionRecords)
		sessions.OnSessionEnd = func(sess *session.Session) {
			if err := sessionRepo.Create(sess.Record(time.Now())); err != nil {
				logger.Warn("failed to persist session %s: %v", sess.ID, err)
			}
		}
	}

	p := proxy.New(opts.Server, opts.Bind, opts.BindPort, sessions, m)
	if err := p.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfgMgr != nil {
		cfgMgr.SetOnChange(func(updated config.Opts) {
			logger.SetDebug(updated.Debug)
			logger.Info("configuration reloaded")
		})
		if err := cfgMgr.Watch(ctx); err != nil {
			logger.Warn("config watch disabled: %v", err)
		}
	}

	var apiServer *api.Server
	if opts.APIAddr != "" {
		apiServer = api.NewServer(opts, sessions, sessionRepo, p, registry)
		if err := apiServer.Start(opts.APIAddr); err != nil {
			p.Shutdown()
			return err
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Warn("api shutdown error: %v", err)
		}
	}

	p.Shutdown()
	p.Join()
	return nil
}
