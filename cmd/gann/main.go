package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"GannCycles/internal/analysis"
	"GannCycles/internal/cache"
	"GannCycles/internal/collector"
	"GannCycles/internal/config"
	"GannCycles/internal/cycle"
	"GannCycles/internal/logging"
	"GannCycles/internal/model"
	"GannCycles/internal/notifier"
	"GannCycles/internal/publisher"
	"GannCycles/internal/recorder"
	"GannCycles/internal/scheduler"
)

type options struct {
	configPath  string
	auto        bool
	serve       bool
	pivots      string
	current     float64
	horizon     int
	today       string
	lookback    int
	minChange   float64
	historyDays int
	minScore    int
	output      string
	provider    string
	symbol      string
	jsonOut     bool
}

func parseFlags(args []string) (*options, map[string]bool, error) {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}

	o := &options{}
	fs := flag.NewFlagSet("gann", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", cfgPath, "path to the YAML config")
	fs.BoolVar(&o.auto, "auto", false, "fetch price history and detect pivots automatically")
	fs.BoolVar(&o.serve, "serve", false, "run the scheduler and Telegram bot until interrupted")
	fs.StringVar(&o.pivots, "pivots", "", `pivots as JSON, e.g. [{"date":"2024-03-14","type":"high","price":73777}], or @file`)
	fs.Float64Var(&o.current, "current", 0, "current price (manual mode)")
	fs.IntVar(&o.horizon, "range", 0, "forecast horizon in days")
	fs.StringVar(&o.today, "today", "", "reference date YYYY-MM-DD (default: today)")
	fs.IntVar(&o.lookback, "lookback", 0, "pivot detection lookback in bars")
	fs.Float64Var(&o.minChange, "min-change", 0, "minimum swing between pivots in percent")
	fs.IntVar(&o.historyDays, "history-days", 0, "days of history to fetch in auto mode")
	fs.IntVar(&o.minScore, "min-score", 0, "minimum convergence score")
	fs.StringVar(&o.output, "output", "", "JSON output file")
	fs.StringVar(&o.provider, "provider", "", "market data provider: binance, yahoo or mock")
	fs.StringVar(&o.symbol, "symbol", "", "market symbol")
	fs.BoolVar(&o.jsonOut, "json", false, "print the report as JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cfg *config.Config, o *options, set map[string]bool) {
	if set["range"] {
		cfg.Analysis.HorizonDays = o.horizon
	}
	if set["today"] {
		cfg.Analysis.Today = o.today
	}
	if set["lookback"] {
		cfg.Detection.Lookback = o.lookback
	}
	if set["min-change"] {
		cfg.Detection.MinChangePct = o.minChange
	}
	if set["history-days"] {
		cfg.Detection.HistoryDays = o.historyDays
	}
	if set["min-score"] {
		cfg.Analysis.MinScore = o.minScore
	}
	if set["output"] {
		cfg.Output.JSONPath = o.output
	}
	if set["provider"] {
		cfg.DataSource.Provider = o.provider
	}
	if set["symbol"] {
		cfg.DataSource.Symbol = o.symbol
	}
	if set["current"] {
		cfg.Manual.Current = o.current
	}
}

// readPivots decodes the -pivots flag; a leading @ names a file.
func readPivots(arg string) ([]model.PivotInput, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read pivots: %w", err)
		}
	}
	var inputs []model.PivotInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("decode pivots: %w", err)
	}
	return inputs, nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 60000}
	default:
		fetcher = collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	}
	if cfg.Cache.RedisAddr == "" {
		return fetcher
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	cached := cache.NewRedisFetcher(fetcher, client, cfg.Cache.TTL)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cached.Ping(ctx); err != nil {
		log.Warnf("redis unavailable, fetching without cache: %v", err)
		client.Close()
		return fetcher
	}
	log.Infof("fetch cache enabled: %s (ttl %v)", cfg.Cache.RedisAddr, cfg.Cache.TTL)
	return cached
}

func newRecorder(cfg *config.Config) recorder.Recorder {
	var multi recorder.MultiRecorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warnf("init sqlite recorder failed, runs will not be stored: %v", err)
		} else {
			multi = append(multi, sr)
		}
	}
	if cfg.Output.JSONPath != "" {
		multi = append(multi, recorder.NewJSONFileRecorder(cfg.Output.JSONPath))
	}
	if len(multi) == 0 {
		return recorder.NewNoopRecorder()
	}
	return multi
}

func main() {
	opts, set, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	applyFlags(cfg, opts, set)

	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("logging: %v", err)
	}
	validate := cfg.Validate
	if opts.serve {
		validate = cfg.ValidateServe
	}
	if err := validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	engine, err := analysis.NewEngine(cycle.DefaultCatalog(), cycle.NewSeasonalMarker(), cfg.AnalysisOptions())
	if err != nil {
		log.Fatalf("init engine: %v", err)
	}

	rec := newRecorder(cfg)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var col scheduler.Snapshotter
	if opts.auto || opts.serve {
		fetcher := newFetcher(cfg)
		log.Infof("data source: %s", fetcher.Name())
		col = collector.NewCollector(fetcher, cfg.DataSource.Symbol,
			cfg.Detection.Lookback, cfg.Detection.MinChangePct, cfg.Detection.HistoryDays)
	}

	sched := scheduler.NewScheduler(ctx, col, engine, rec)
	sched.Today = func() model.Date {
		d, _ := cfg.ReferenceDate(time.Now()) // validated above
		return d
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := publisher.NewReportPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer pub.Close()
		sched.Publisher = pub
		log.Infof("publishing reports to kafka topic %s", cfg.Kafka.Topic)
	}

	if opts.serve {
		serve(ctx, cancel, cfg, sched)
		return
	}

	var report *model.Report
	if opts.auto {
		report, err = sched.RunAnalysis(ctx)
	} else {
		report, err = runManual(ctx, cfg, opts, sched, engine)
	}
	if err != nil {
		log.Fatalf("analysis: %v", err)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	} else {
		err = notifier.WriteText(os.Stdout, report)
	}
	if err != nil {
		log.Fatalf("print report: %v", err)
	}
}

func runManual(ctx context.Context, cfg *config.Config, opts *options, sched *scheduler.Scheduler, engine *analysis.Engine) (*model.Report, error) {
	inputs := cfg.Manual.Pivots
	if opts.pivots != "" {
		var err error
		if inputs, err = readPivots(opts.pivots); err != nil {
			return nil, err
		}
	}
	if len(inputs) == 0 {
		log.Warn("no pivots given; use -pivots, manual.pivots in the config, or -auto")
	}
	pivots, err := model.ParsePivots(inputs)
	if err != nil {
		return nil, err
	}

	report, err := engine.Analyze(analysis.Request{
		Symbol:        cfg.DataSource.Symbol,
		Source:        "manual",
		Pivots:        pivots,
		CurrentPrice:  decimal.NewFromFloat(cfg.Manual.Current),
		ReferenceDate: sched.Today(),
	})
	if err != nil {
		return nil, err
	}
	sched.Deliver(ctx, report)
	return report, nil
}

func serve(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, sched *scheduler.Scheduler) {
	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if err != nil {
		log.Fatalf("init telegram: %v", err)
	}
	sched.Notifier = tn

	if err := sched.RegisterAll(cfg.Schedule.AnalysisCron); err != nil {
		log.Fatalf("register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running analysis now")
		go sched.RunNow()
	}

	log.Info("gann scheduler is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
}
