package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pingsantohq/tcping/internal/config"
	"github.com/pingsantohq/tcping/internal/events"
	"github.com/pingsantohq/tcping/internal/geo"
	"github.com/pingsantohq/tcping/internal/logging"
	"github.com/pingsantohq/tcping/internal/metrics"
	"github.com/pingsantohq/tcping/internal/render"
	"github.com/pingsantohq/tcping/internal/resolve"
	"github.com/pingsantohq/tcping/internal/runtime"
	"github.com/pingsantohq/tcping/internal/scheduler"
	"github.com/pingsantohq/tcping/pkg/types"
)

var version = "dev"

// flag aliases share a destination; set-tracking uses the long name.
var aliases = map[string]string{
	"t": "continuous",
	"n": "count",
	"i": "interval",
	"w": "timeout",
	"v": "verbose",
}

type flagValues struct {
	target string
	set    map[string]bool

	continuous  bool
	count       string
	interval    string
	timeout     string
	jsonOutput  bool
	noColor     bool
	verbose     bool
	configPath  string
	writeConfig bool
	metricsAddr string
	geoipDB     string
	dns         string
	logFile     string
	version     bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fv, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 1
	}

	if fv.version {
		fmt.Fprintf(stdout, "tcping %s\n", version)
		return 0
	}

	cfg, err := loadConfig(ctx, fv.configPath)
	if err != nil {
		return fail(stdout, fv.jsonOutput, err)
	}
	cfg, err = applyFlags(cfg, fv)
	if err != nil {
		return fail(stdout, fv.jsonOutput || cfg.Output.JSON, err)
	}

	if fv.writeConfig {
		return writeConfig(stdout, fv.configPath, cfg)
	}

	if fv.target == "" {
		printUsage(stderr)
		return 1
	}

	consoleOpts := []render.ConsoleOption{render.WithTimestamps(cfg.Probe.Continuous)}
	if cfg.Output.NoColor {
		consoleOpts = append(consoleOpts, render.WithColor(false))
	}
	console := render.NewConsole(stdout, consoleOpts...)

	logger, closer := logging.New(logging.Options{
		Verbose:    cfg.Log.Verbose,
		Stderr:     stderr,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer closer.Close()

	var presenter events.Recorder = console
	var jsonOut *render.JSON
	if cfg.Output.JSON {
		jsonOut = render.NewJSON(stdout)
		presenter = jsonOut
	}
	recorders := []events.Recorder{presenter, events.NewLogRecorder(logger)}

	var exporter *metrics.Exporter
	if cfg.Metrics.Addr != "" {
		exporter = metrics.NewExporter()
		recorders = append(recorders, exporter)
	}

	var locator *geo.Locator
	if cfg.GeoIP.Database != "" {
		locator, err = geo.Open(cfg.GeoIP.Database)
		if err != nil {
			logger.Printf("geoip disabled: %v", err)
		}
		defer locator.Close()
	}

	rt := runtime.New(
		runtime.WithResolver(resolve.New(resolve.WithServers(cfg.Probe.DNSResolvers))),
		runtime.WithRecorders(recorders...),
		runtime.WithLogger(logger),
		runtime.WithResolvedHook(func(ep types.Endpoint) {
			if locator == nil || jsonOut != nil {
				return
			}
			loc, err := locator.Lookup(ep.Addr.Addr())
			if err != nil {
				logger.Printf("geoip lookup failed: %v", err)
			}
			console.Header(ep, loc.String())
		}),
	)

	settings := runtime.Settings{
		Target:   fv.target,
		Mode:     modeFromConfig(cfg.Probe),
		Interval: time.Duration(cfg.Probe.IntervalMs) * time.Millisecond,
		Timeout:  time.Duration(cfg.Probe.TimeoutSec) * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	grp, groupCtx := errgroup.WithContext(runCtx)
	serveCtx, stopServe := context.WithCancel(groupCtx)
	defer stopServe()

	var report runtime.Report
	grp.Go(func() error {
		defer stopServe()
		var err error
		report, err = rt.Run(groupCtx, settings)
		return err
	})

	if exporter != nil {
		grp.Go(func() error {
			return metrics.Serve(serveCtx, cfg.Metrics.Addr, exporter, logger)
		})
	}

	err = grp.Wait()
	// a second interrupt after this point terminates the process
	stop()

	if len(report.History) > 0 {
		if jsonOut != nil {
			jsonOut.Summary(report.RunID, report.Endpoint, report.Summary)
		} else {
			console.Summary(report.Summary)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		if jsonOut != nil {
			jsonOut.Error(err)
		} else {
			console.Error(err)
		}
		return 1
	}
	return 0
}

// fail reports an error raised before the run starts and returns the exit code.
func fail(stdout io.Writer, jsonMode bool, err error) int {
	if jsonMode {
		render.NewJSON(stdout).Error(err)
	} else {
		render.NewConsole(stdout).Error(err)
	}
	return 1
}

func parseFlags(args []string, stderr io.Writer) (flagValues, error) {
	var fv flagValues

	fs := flag.NewFlagSet("tcping", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.BoolVar(&fv.continuous, "t", false, "Ping until stopped with Ctrl+C")
	fs.BoolVar(&fv.continuous, "continuous", false, "Ping until stopped with Ctrl+C")
	fs.StringVar(&fv.count, "n", "", "Number of TCP requests (not counting warmup) to send")
	fs.StringVar(&fv.count, "count", "", "Number of TCP requests (not counting warmup) to send")
	fs.StringVar(&fv.interval, "i", "", "Interval (in milliseconds) between requests; the default is 1000")
	fs.StringVar(&fv.interval, "interval", "", "Interval (in milliseconds) between requests; the default is 1000")
	fs.StringVar(&fv.timeout, "w", "", "Connection timeout in seconds; the default is 4")
	fs.StringVar(&fv.timeout, "timeout", "", "Connection timeout in seconds; the default is 4")
	fs.BoolVar(&fv.verbose, "v", false, "Write diagnostic logs to stderr")
	fs.BoolVar(&fv.verbose, "verbose", false, "Write diagnostic logs to stderr")
	fs.BoolVar(&fv.jsonOutput, "json", false, "Emit newline delimited JSON instead of text")
	fs.BoolVar(&fv.noColor, "no-color", false, "Disable coloured output")
	fs.StringVar(&fv.configPath, "config", "", "Path to a YAML defaults file")
	fs.BoolVar(&fv.writeConfig, "write-config", false, "Write the effective settings to the config file and exit")
	fs.StringVar(&fv.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while probing")
	fs.StringVar(&fv.geoipDB, "geoip-db", "", "MaxMind database used to annotate the resolved address")
	fs.StringVar(&fv.dns, "dns", "", "Comma separated DNS servers used to resolve the target")
	fs.StringVar(&fv.logFile, "log-file", "", "Append diagnostic logs to this file (rotated)")
	fs.BoolVar(&fv.version, "version", false, "Print the version and exit")

	// flags may follow the target, so keep parsing after each positional argument
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return fv, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	fv.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		fv.set[name] = true
	})

	switch len(positional) {
	case 0:
	case 1:
		fv.target = positional[0]
	default:
		fmt.Fprintf(stderr, "unexpected argument: %s\n", positional[1])
		printUsage(stderr)
		return fv, fmt.Errorf("unexpected argument %q", positional[1])
	}

	return fv, nil
}

// applyFlags overlays explicitly set flags on cfg.
func applyFlags(cfg config.Config, fv flagValues) (config.Config, error) {
	if fv.set["continuous"] {
		cfg.Probe.Continuous = fv.continuous
	}
	if fv.set["count"] {
		n, err := parseUint(fv.count)
		if err != nil {
			return cfg, errors.New("invalid count")
		}
		cfg.Probe.Count = n
	}
	if fv.set["interval"] {
		n, err := parseUint(fv.interval)
		if err != nil {
			return cfg, errors.New("invalid interval")
		}
		cfg.Probe.IntervalMs = n
	}
	if fv.set["timeout"] {
		n, err := parseUint(fv.timeout)
		if err != nil || n < 1 {
			return cfg, errors.New("invalid timeout")
		}
		cfg.Probe.TimeoutSec = n
	}
	if fv.set["json"] {
		cfg.Output.JSON = fv.jsonOutput
	}
	if fv.set["no-color"] {
		cfg.Output.NoColor = fv.noColor
	}
	if fv.set["verbose"] {
		cfg.Log.Verbose = fv.verbose
	}
	if fv.set["log-file"] {
		cfg.Log.File = fv.logFile
	}
	if fv.set["metrics-addr"] {
		cfg.Metrics.Addr = fv.metricsAddr
	}
	if fv.set["geoip-db"] {
		cfg.GeoIP.Database = fv.geoipDB
	}
	if fv.set["dns"] {
		cfg.Probe.DNSResolvers = splitList(fv.dns)
	}
	return cfg, cfg.Validate()
}

func loadConfig(ctx context.Context, path string) (config.Config, error) {
	if path != "" {
		return config.Load(ctx, path)
	}
	cfg, _, err := config.LoadFromEnv(ctx)
	return cfg, err
}

func writeConfig(stdout io.Writer, path string, cfg config.Config) int {
	if path == "" {
		path, _ = config.DefaultPath()
	}
	console := render.NewConsole(stdout)
	if path == "" {
		console.Error(errors.New("no config path available; pass --config"))
		return 1
	}
	if err := config.Save(path, cfg); err != nil {
		console.Error(err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return 0
}

func modeFromConfig(p config.ProbeConfig) scheduler.Mode {
	if p.Continuous {
		return scheduler.Continuous()
	}
	return scheduler.Count(p.Count)
}

func parseUint(s string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 31)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "TCP ping utility")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tcping [-t] [-n count] [-i interval_ms] [-w timeout_secs] host:port")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -t, --continuous       Ping until stopped with Ctrl+C")
	fmt.Fprintln(w, "  -n, --count N          Number of TCP requests (not counting warmup) to send; default 4")
	fmt.Fprintln(w, "  -i, --interval MS      Interval in milliseconds between requests; default 1000")
	fmt.Fprintln(w, "  -w, --timeout SECS     Connection timeout in seconds; default 4")
	fmt.Fprintln(w, "  -v, --verbose          Write diagnostic logs to stderr")
	fmt.Fprintln(w, "      --json             Emit newline delimited JSON")
	fmt.Fprintln(w, "      --no-color         Disable coloured output")
	fmt.Fprintln(w, "      --config PATH      YAML defaults file (default $TCPING_CONFIG or ~/.config/tcping/config.yaml)")
	fmt.Fprintln(w, "      --write-config     Save the effective settings to the config file and exit")
	fmt.Fprintln(w, "      --metrics-addr A   Serve Prometheus metrics on A while probing")
	fmt.Fprintln(w, "      --geoip-db PATH    Annotate the resolved address using a MaxMind database")
	fmt.Fprintln(w, "      --dns LIST         Comma separated DNS servers for resolving the target")
	fmt.Fprintln(w, "      --log-file PATH    Append diagnostic logs to a rotated file")
	fmt.Fprintln(w, "      --version          Print the version and exit")
}
