// Package main provides the entry point for the market simulator: it loads
// a daily OHLCV table, replays the configured date range through the
// event-driven kernel, and reports the final portfolio state.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/api"
	"github.com/atlas-desktop/market-simulator/internal/calendar"
	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/engine"
	"github.com/atlas-desktop/market-simulator/internal/eventlog"
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/internal/metrics"
	"github.com/atlas-desktop/market-simulator/internal/strategy"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	simCfg, dataCfg, srvCfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting market simulator",
		zap.Time("start", simCfg.Start),
		zap.Time("end", simCfg.End),
		zap.String("exchange", simCfg.Exchange),
		zap.String("capitalBase", simCfg.CapitalBase.String()),
		zap.String("data", dataCfg.CSVPath),
	)

	cal, err := calendar.New(simCfg.Exchange)
	if err != nil {
		logger.Fatal("Failed to create calendar", zap.Error(err))
	}
	frame, err := data.NewCSVSource(dataCfg.CSVPath).Load()
	if err != nil {
		logger.Fatal("Failed to load price data", zap.Error(err))
	}
	prices := data.NewPricesDataset(frame, cal)

	built, err := buyAndHoldStrategy(prices, dataCfg.Symbols)
	if err != nil {
		logger.Fatal("Failed to build strategy", zap.Error(err))
	}

	eng, err := engine.New(logger, engine.Config{
		Start:          simCfg.Start,
		End:            simCfg.End,
		Exchange:       simCfg.Exchange,
		CapitalBase:    simCfg.CapitalBase,
		ExecutionDelay: simCfg.ExecutionDelay,
		Universe:       dataCfg.Symbols,
		Strategy:       built,
	}, prices)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	eng.EventManager().OnDispatch(collector.Observe)

	if simCfg.EventLogPath != "" {
		writer, err := eventlog.NewWriter(simCfg.EventLogPath)
		if err != nil {
			logger.Fatal("Failed to open event log", zap.Error(err))
		}
		defer writer.Close()
		eng.EventManager().OnDispatch(writer.Observe)
	}

	var server *api.Server
	if srvCfg.Enabled {
		server = api.NewServer(logger, srvCfg, eng, registry)
		eng.EventManager().OnDispatch(server.Hub().ObserveEvent)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("API server stopped", zap.Error(err))
			}
		}()
	}

	result := eng.Run()
	collector.SetQueueDepth(eng.EventManager().Pending())
	reportResult(logger, result)

	if server == nil {
		if result.Err != nil {
			os.Exit(1)
		}
		return
	}

	server.SetResult(result)

	// Keep serving results until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Failed to stop server", zap.Error(err))
	}
}

// buyAndHoldStrategy buys one share of the first configured symbol at the
// first open and holds it.
func buyAndHoldStrategy(prices *data.PricesDataset, symbols []string) (*strategy.TradingStrategy, error) {
	universe := symbols
	if len(universe) == 0 {
		universe = prices.Symbols()
	}
	assets := make([]types.Asset, len(universe))
	for i, symbol := range universe {
		assets[i] = types.NewAsset(int64(i+1), symbol, symbol)
	}

	return strategy.NewBuilder().
		OnEvent(events.TypeMarketOpen).
		WithAssets(assets...).
		WithCurrentPrices(prices).
		Build(func(ctx *strategy.Context, d *strategy.Data) error {
			if len(ctx.Portfolio.Lots()) == 0 {
				_, err := ctx.Broker.PlaceOrder(assets[0], 1)
				return err
			}
			return nil
		})
}

func reportResult(logger *zap.Logger, result *engine.Result) {
	if result.Err != nil {
		logger.Error("Simulation aborted",
			zap.Error(result.Err),
			zap.Time("simulationTime", result.EndedAt),
			zap.Uint64("eventsDispatched", result.EventsTotal),
		)
		return
	}
	logger.Info("Simulation complete",
		zap.Time("endedAt", result.EndedAt),
		zap.Uint64("eventsDispatched", result.EventsTotal),
		zap.Int("transactions", result.Transactions),
		zap.String("cash", result.Cash.String()),
		zap.String("portfolioValue", result.PortfolioValue.String()),
		zap.Int("sessions", result.Performance.Sessions),
		zap.Float64("cumulativeReturn", result.Performance.CumulativeReturn),
		zap.Float64("maxDrawdown", result.Performance.MaxDrawdown),
	)
}

// loadConfig reads the yaml config file (if given) over built-in defaults.
// Environment variables prefixed SIMULATOR_ override both.
func loadConfig(path string) (*types.SimulationConfig, *types.DataConfig, *types.ServerConfig, error) {
	v := viper.New()
	v.SetDefault("simulation.start", "2018-12-26T00:00:00-05:00")
	v.SetDefault("simulation.end", "2018-12-31T00:00:00-05:00")
	v.SetDefault("simulation.exchange", "XNYS")
	v.SetDefault("simulation.capital_base", "1000")
	v.SetDefault("simulation.execution_delay", "3ms")
	v.SetDefault("data.csv_path", "internal/data/testdata/ohlcv/sample.csv")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.websocket_path", "/ws")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.enable_metrics", true)

	v.SetEnvPrefix("SIMULATOR")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, nil, err
		}
	}

	start, err := time.Parse(time.RFC3339, v.GetString("simulation.start"))
	if err != nil {
		return nil, nil, nil, err
	}
	end, err := time.Parse(time.RFC3339, v.GetString("simulation.end"))
	if err != nil {
		return nil, nil, nil, err
	}
	capitalBase, err := decimal.NewFromString(v.GetString("simulation.capital_base"))
	if err != nil {
		return nil, nil, nil, err
	}

	simCfg := &types.SimulationConfig{
		Start:          start,
		End:            end,
		Exchange:       v.GetString("simulation.exchange"),
		Timezone:       v.GetString("simulation.timezone"),
		CapitalBase:    capitalBase,
		ExecutionDelay: v.GetDuration("simulation.execution_delay"),
		EventLogPath:   v.GetString("simulation.event_log_path"),
	}
	dataCfg := &types.DataConfig{
		CSVPath: v.GetString("data.csv_path"),
		Symbols: v.GetStringSlice("data.symbols"),
	}
	srvCfg := &types.ServerConfig{
		Enabled:       v.GetBool("server.enabled"),
		Host:          v.GetString("server.host"),
		Port:          v.GetInt("server.port"),
		WebSocketPath: v.GetString("server.websocket_path"),
		ReadTimeout:   v.GetDuration("server.read_timeout"),
		WriteTimeout:  v.GetDuration("server.write_timeout"),
		EnableMetrics: v.GetBool("server.enable_metrics"),
	}
	return simCfg, dataCfg, srvCfg, nil
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
