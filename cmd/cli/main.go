// Command pocscan runs a directory of YAML POC definitions against one
// target and reports which of them matched.
//
// Usage:
//
//	pocscan -u https://target.example -pocs ./pocs [-c 10] [-timeout 10000]
//	        [-proxy socks5://127.0.0.1:1080] [-format json -o report.json]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocscan/pocscan/pkg/config"
	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/engine"
	"github.com/pocscan/pocscan/pkg/httpclient"
	"github.com/pocscan/pocscan/pkg/metrics"
	"github.com/pocscan/pocscan/pkg/output"
	"github.com/pocscan/pocscan/pkg/scanner"
	ptls "github.com/pocscan/pocscan/pkg/tls"
	"github.com/pocscan/pocscan/pkg/tracing"
	"github.com/pocscan/pocscan/pkg/ui"
)

func main() {
	ui.PrepareConsole()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run is main without the process globals, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.ParseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return defaults.ExitOK
	}
	if err != nil {
		return defaults.ExitUsage
	}

	switch {
	case cfg.ShowVersion:
		fmt.Fprintf(stdout, "%s %s\n", defaults.ToolName, defaults.Version)
		return defaults.ExitOK
	case cfg.ListFingerprints:
		for _, p := range ptls.Profiles() {
			fmt.Fprintf(stdout, "%-8s %s\n", p.Name, p.Description)
		}
		return defaults.ExitOK
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", defaults.ToolName, err)
		fmt.Fprintf(stderr, "Usage: %s -u <target> -pocs <dir> (run with -h for all options)\n", defaults.ToolName)
		return defaults.ExitUsage
	}

	logger := newLogger(stderr, cfg)
	slog.SetDefault(logger)

	summary, err := scan(ctx, cfg, logger, stdout, stderr)
	if err != nil {
		logger.Error("scan failed", slog.String("error", err.Error()))
		return defaults.ExitError
	}
	if cfg.FailOnVuln && summary.Vulnerable > 0 {
		return defaults.ExitVulnerable
	}
	return defaults.ExitOK
}

func scan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) (*metrics.Summary, error) {
	tp, err := tracing.Setup(ctx, tracing.Options{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("trace export shutdown", slog.String("error", err.Error()))
		}
	}()

	var collector *metrics.Collector
	if cfg.MetricsAddr != "" {
		if collector, err = metrics.NewCollector(logger); err != nil {
			return nil, err
		}
		if err := collector.Serve(cfg.MetricsAddr, ""); err != nil {
			return nil, err
		}
		defer collector.Close()
		logger.Info("serving metrics", slog.String("addr", "http://"+collector.Addr()+"/metrics"))
	}

	hc, err := cfg.HTTPClient()
	if err != nil {
		return nil, err
	}
	hc.Logger = logger
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, err
	}
	logger.Debug("transport ready",
		slog.Duration("timeout", client.Timeout()),
		slog.String("proxy", string(client.ProxyType())),
		slog.Bool("verify_tls", !hc.InsecureSkipVerify),
		slog.String("fingerprint", hc.Fingerprint))

	executor := engine.NewExecutor(client,
		engine.WithLogger(logger),
		engine.WithTracer(tp.Tracer("github.com/pocscan/pocscan/pkg/engine")))
	sc := scanner.New(executor, scanner.Config{
		Concurrency: cfg.Concurrency,
		Limiter:     cfg.RateLimiter(),
		Logger:      logger,
		Tracer:      tp.Tracer("github.com/pocscan/pocscan/pkg/scanner"),
	})
	defer sc.Close()

	w, err := newWriter(cfg, stdout, stderr, sc)
	if err != nil {
		return nil, err
	}

	var listener scanner.Listener = w
	if collector != nil {
		listener = scanner.Multi(w, collector)
	}

	start := time.Now()
	results, scanErr := sc.ScanDirectory(ctx, cfg.Target, cfg.POCDir, listener)
	elapsed := time.Since(start)
	if collector != nil {
		collector.ObserveScan(elapsed)
	}

	calc := metrics.NewCalculator()
	calc.AddAll(results)
	summary := calc.Calculate(cfg.Target, sc.RunID(), elapsed)

	if err := w.Finish(summary); err != nil {
		return summary, errors.Join(scanErr, err)
	}
	return summary, scanErr
}

// newWriter builds the report writer. Machine formats written to a file
// get a console writer alongside them; written to stdout they stand alone.
func newWriter(cfg *config.Config, stdout, stderr io.Writer, sc *scanner.Scanner) (output.Writer, error) {
	opts := output.Options{
		Format:  cfg.OutputFormat,
		Path:    cfg.OutputFile,
		Verbose: cfg.Verbose,
		Silent:  cfg.Silent,
		NoColor: cfg.NoColor,
		Stdout:  stdout,
		Stderr:  stderr,
	}
	w, err := output.New(opts)
	if err != nil {
		return nil, err
	}
	if cw, ok := w.(*output.ConsoleWriter); ok {
		cw.SetStats(sc.Stats)
		return cw, nil
	}
	if cfg.OutputFile == "" {
		return w, nil
	}
	cw := output.NewConsoleWriter(stdout, stderr, output.ConsoleOptions{
		Verbose: cfg.Verbose,
		Silent:  cfg.Silent,
		NoColor: cfg.NoColor,
		Stats:   sc.Stats,
	})
	return output.Fanout(cw, w), nil
}
