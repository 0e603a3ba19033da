// nosmct bulk-executes commands against a fleet of network devices:
// yoink pulls state, yeet pushes a config set, save-only just saves.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AndrewPiroli/NOS-MCT/internal/collect"
	"github.com/AndrewPiroli/NOS-MCT/internal/device"
	"github.com/AndrewPiroli/NOS-MCT/internal/dispatch"
	"github.com/AndrewPiroli/NOS-MCT/internal/inventory"
	"github.com/AndrewPiroli/NOS-MCT/internal/job"
	"github.com/AndrewPiroli/NOS-MCT/internal/persistence"
	"github.com/AndrewPiroli/NOS-MCT/internal/transport"
	"github.com/AndrewPiroli/NOS-MCT/pkg/config"
	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
	"github.com/AndrewPiroli/NOS-MCT/pkg/publisher"
)

const serviceName = "nosmct"

type options struct {
	Yoink    bool
	Yeet     bool
	SaveOnly bool

	Inventory string `validate:"required"`
	Jobfile   string
	Threads   int `validate:"gte=1"`

	Quiet        bool
	Verbose      bool
	NoPreload    bool
	DebugSession bool
	PublishTo    string
}

func parseFlags() *options {
	opts := &options{}
	flag.BoolVar(&opts.Yoink, "yoink", false, "yoink mode, pull configurations from the NOS")
	flag.BoolVar(&opts.Yeet, "yeet", false, "yeet mode, push configurations to the NOS")
	flag.BoolVar(&opts.SaveOnly, "save-only", false, "save-only mode, just saves running-config")
	flag.StringVar(&opts.Inventory, "i", "", "inventory: a CSV path or lnms:<config location>")
	flag.StringVar(&opts.Inventory, "inventory", "", "inventory: a CSV path or lnms:<config location>")
	flag.StringVar(&opts.Jobfile, "j", "", "file containing commands to send to the NOS")
	flag.StringVar(&opts.Jobfile, "jobfile", "", "file containing commands to send to the NOS")
	flag.IntVar(&opts.Threads, "t", dispatch.DefaultConcurrency, "number of devices to connect to at once")
	flag.IntVar(&opts.Threads, "threads", dispatch.DefaultConcurrency, "number of devices to connect to at once")
	flag.BoolVar(&opts.Quiet, "q", false, "suppress most output")
	flag.BoolVar(&opts.Verbose, "v", false, "enable verbose output")
	flag.BoolVar(&opts.NoPreload, "no-preload", false, "disable caching for job files")
	flag.BoolVar(&opts.DebugSession, "debug-session", false, "log raw session io per device")
	flag.StringVar(&opts.PublishTo, "publish-config", "", "optional event publisher config location")
	flag.Parse()
	return opts
}

func resolveInventory(ctx context.Context, location string, logger lg.Logger) ([]inventory.Record, error) {
	if rest, ok := strings.CutPrefix(location, "lnms:"); ok {
		store, err := config.FromLocation(rest, "librenms")
		if err != nil {
			return nil, err
		}
		var dc inventory.DiscoveryConfig
		if err := store.Load(&dc); err != nil {
			return nil, err
		}
		lnms, err := inventory.NewLNMS(dc, inventory.DefaultFilterSet(), logger)
		if err != nil {
			return nil, err
		}
		return lnms.Resolve(ctx)
	}
	return inventory.LoadStatic(location)
}

func compileJob(ctx context.Context, opts *options, mode job.Mode) (job.Spec, error) {
	if mode == job.ModeSaveOnly {
		return job.Compile(mode, "")
	}
	if opts.Jobfile == "" {
		return job.Spec{}, fmt.Errorf("a jobfile is required for %v mode", mode)
	}
	cache := job.NewCache(!opts.NoPreload)
	if err := cache.Warm(ctx, mode, opts.Jobfile); err != nil {
		return job.Spec{}, err
	}
	return cache.Load(mode, opts.Jobfile)
}

func newSink(location string) (collect.Sink, func() error, error) {
	if location == "" {
		return nil, nil, nil
	}
	store, err := config.FromLocation(location, "events")
	if err != nil {
		return nil, nil, err
	}
	var cfg publisher.Config
	if err := store.Load(&cfg); err != nil {
		return nil, nil, err
	}
	p := publisher.New[device.Outcome](cfg)
	return p, p.Close, nil
}

func run() int {
	start := time.Now()
	opts := parseFlags()
	logger := lg.New(&lg.Config{ServiceName: serviceName, Quiet: opts.Quiet, Verbose: opts.Verbose})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = lg.Attach(ctx, logger)

	mode, err := job.SelectMode(opts.Yoink, opts.Yeet, opts.SaveOnly)
	if err != nil {
		logger.Error("bad mode selection", lg.Err(err))
		return 1
	}
	logger.Info("running in operating mode", lg.String("mode", mode.String()))

	if err := validator.New().Struct(opts); err != nil {
		if opts.Inventory == "" {
			logger.Error("an inventory is required", lg.Err(err))
			return 1
		}
		// a silly thread count is recoverable, fall back to the default
		logger.Warn("thread count out of range, using default",
			lg.Int("requested", opts.Threads), lg.Int("default", dispatch.DefaultConcurrency))
		opts.Threads = dispatch.DefaultConcurrency
	}

	devices, err := resolveInventory(ctx, opts.Inventory, logger)
	if err != nil {
		logger.Error("inventory resolution failed", lg.Err(err))
		return 1
	}
	logger.Info("inventory resolved", lg.Int("devices", len(devices)))

	spec, err := compileJob(ctx, opts, mode)
	if err != nil {
		logger.Error("job compilation failed", lg.Err(err))
		return 1
	}

	runID := uuid.New()
	runDir := filepath.Join("Output", start.Format("2006-01-02 15.04"))
	artifacts, err := persistence.NewArtifactDir(runDir)
	if err != nil {
		logger.Error("cannot create output directory", lg.Err(err))
		return 1
	}

	debugDir := ""
	if opts.DebugSession {
		debugDir = filepath.Join(runDir, "session-debug")
		if err := os.MkdirAll(debugDir, 0755); err != nil {
			logger.Warn("cannot create session debug directory", lg.Err(err))
			debugDir = ""
		}
	}

	sink, closeSink, err := newSink(opts.PublishTo)
	if err != nil {
		logger.Error("cannot configure event publisher", lg.Err(err))
		return 1
	}
	if closeSink != nil {
		defer closeSink()
	}

	dialer := transport.NewDialer(10*time.Second, debugDir, logger)
	dispatcher := dispatch.New(dialer, logger)
	outcomes := dispatcher.Run(ctx, devices, spec, dispatch.Config{ConcurrencyLimit: opts.Threads})

	collector := collect.New(runID, artifacts, sink, logger)
	summary := collector.Collect(ctx, outcomes)

	logger.Info("run complete",
		lg.String("run_id", runID.String()),
		lg.Int("success", summary.Success),
		lg.Int("auth_failure", summary.AuthFailure),
		lg.Int("connect_failure", summary.ConnectFailure),
		lg.Int("exec_failure", summary.ExecFailure),
		lg.Duration("elapsed", time.Since(start)))

	if summary.Failed() {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
