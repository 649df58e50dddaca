// Package cli parses flags, resolves configuration and runs either a scan
// or the API service.
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kdltmhl/mc-ip-scanner/api"
	"github.com/kdltmhl/mc-ip-scanner/checker"
	"github.com/kdltmhl/mc-ip-scanner/checkpoint"
	"github.com/kdltmhl/mc-ip-scanner/config"
	"github.com/kdltmhl/mc-ip-scanner/logging"
	"github.com/kdltmhl/mc-ip-scanner/notify"
	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

// neighborhoodSpread is how many surrounding addresses a bare-host target
// expands to.
const neighborhoodSpread = 100

type options struct {
	cidr        string
	file        string
	random      bool
	count       uint64
	port        uint
	workers     int
	delay       float64
	progress    uint64
	realtime    bool
	consoleOnly bool
	debug       bool
	serve       bool
	icmpGate    bool
	synFilter   bool
	configPath  string
}

// Run is the entry point for the executable. It returns the process exit
// code.
func Run() int {
	var opts options
	flag.StringVar(&opts.cidr, "cidr", "", "CIDR range or single IP to scan (e.g. 203.0.113.0/24)")
	flag.StringVar(&opts.file, "file", "", "File containing IPs to scan, one per line")
	flag.BoolVar(&opts.random, "random", false, "Scan random public IPs")
	flag.Uint64Var(&opts.count, "count", 0, "Number of random IPs to scan (0 = until interrupted)")
	flag.UintVar(&opts.port, "port", 25565, "Port to scan")
	flag.IntVar(&opts.workers, "workers", 50, "Maximum number of concurrent probes")
	flag.Float64Var(&opts.delay, "delay", 0.5, "Upper bound of the random per-probe delay in seconds")
	flag.Uint64Var(&opts.progress, "progress", 100, "Show progress and checkpoint every N scanned IPs")
	flag.BoolVar(&opts.realtime, "realtime", false, "Deliver notifications immediately as servers are found")
	flag.BoolVar(&opts.consoleOnly, "console-only", false, "Only output to console, skip the notification channel")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&opts.serve, "serve", false, "Run the REST API service instead of a one-shot scan")
	flag.BoolVar(&opts.icmpGate, "icmp-gate", false, "Skip hosts that do not answer an ICMP echo")
	flag.BoolVar(&opts.synFilter, "syn-prefilter", false, "Send a raw TCP SYN first and skip closed ports (requires root)")
	flag.StringVar(&opts.configPath, "config", "config.yaml", "Path to the optional config file")
	flag.Parse()

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := logging.Configure(level)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Error("configuration failed", "error", err)
		return 1
	}
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	applyFlags(&cfg, opts, setFlags)

	if opts.serve {
		if err := api.Run(cfg); err != nil {
			logger.Error("api service failed", "error", err)
			return 1
		}
		return 0
	}

	if opts.cidr == "" && opts.file == "" && !opts.random {
		logger.Error("no scan target specified, use -cidr, -file, or -random")
		flag.Usage()
		return 1
	}

	if cfg.SynPrefilter {
		if err := scanner.InitSynFilter(); err != nil {
			logger.Error("syn prefilter unavailable", "error", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested, finishing probes in flight")
	}()

	notifier := resolveNotifier(cfg, opts, logger)
	defer notifier.Close()

	sink := notify.NewSink(ctx, notifier, opts.realtime,
		notify.SpacingLimiter(notify.MinNotifySpacing), logger)

	store := checkpoint.NewStore(cfg.CheckpointDir, logger)
	sweep := scanner.New(scanner.Config{
		Workers:          cfg.Workers,
		Port:             cfg.Port,
		Jitter:           cfg.ScanDelayDuration(),
		ProbeTimeout:     cfg.ProbeTimeoutDuration(),
		ProgressInterval: cfg.ProgressInterval,
		Count:            opts.count,
		Realtime:         opts.realtime,
		ICMPGate:         cfg.ICMPGate,
		SynPrefilter:     cfg.SynPrefilter,
	}, checker.NewJavaChecker(), sink, store, logger)

	source, err := resolveSource(opts, store, logger)
	if err != nil {
		logger.Error("cannot build target list", "error", err)
		return 1
	}

	found, err := sweep.Run(ctx, source)
	if err != nil {
		logger.Error("scan failed", "error", err)
		sink.Close()
		return 1
	}

	// Flush queued notifications before reporting.
	sink.Close()
	if !opts.realtime {
		logger.Info("scan finished", "servers_found", len(found))
	}
	return 0
}

// applyFlags overlays flag values onto the loaded configuration. Only flags
// the user actually set are applied; the declared flag defaults must not
// clobber values coming from config.yaml.
func applyFlags(cfg *config.Config, opts options, set map[string]bool) {
	if set["workers"] && opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if set["port"] && opts.port > 0 && opts.port <= 65535 {
		cfg.Port = uint16(opts.port)
	}
	if set["delay"] && opts.delay >= 0 {
		cfg.ScanDelay = time.Duration(opts.delay * float64(time.Second)).String()
	}
	if set["progress"] && opts.progress > 0 {
		cfg.ProgressInterval = opts.progress
	}
	if opts.icmpGate {
		cfg.ICMPGate = true
	}
	if opts.synFilter {
		cfg.SynPrefilter = true
	}
}

// resolveNotifier picks the concrete notification channel once at startup.
// Scanner and sink only ever see the interface.
func resolveNotifier(cfg config.Config, opts options, logger *slog.Logger) notify.Notifier {
	if opts.consoleOnly {
		return notify.Unavailable()
	}
	if cfg.DiscordToken == "" || cfg.DiscordChannel == "" {
		logger.Warn("discord not configured, console output only")
		return notify.Unavailable()
	}

	notifier, err := notify.NewDiscord(cfg.DiscordToken, cfg.DiscordChannel, logger)
	if err != nil {
		logger.Error("discord init failed, console output only", "error", err)
		return notify.Unavailable()
	}
	if !notifier.WaitReady(10 * time.Second) {
		logger.Warn("discord connection timed out, will still try to send")
	}
	return notifier
}

func resolveSource(opts options, store *checkpoint.Store, logger *slog.Logger) (scanner.Source, error) {
	switch {
	case opts.cidr != "":
		return targetSource(opts.cidr, logger)
	case opts.file != "":
		addrs, err := readAddrFile(opts.file, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("scanning address list", "file", opts.file, "addresses", len(addrs))
		return scanner.FromList(addrs), nil
	case opts.random:
		if cp := store.Load(); cp != nil {
			if last, ok := cp.LastAddr(); ok {
				logger.Info("resuming scan from previous checkpoint", "last_ip", last.String())
				return scanner.SequentialFrom(last)
			}
		}
		return scanner.RandomPublic(time.Now().UnixNano()), nil
	}
	return nil, fmt.Errorf("no scan target specified")
}

// targetSource turns a -cidr argument into a source. A value without a
// slash, or one whose CIDR part does not parse, is treated as a bare host
// and expanded to its neighborhood.
func targetSource(spec string, logger *slog.Logger) (scanner.Source, error) {
	if strings.Contains(spec, "/") {
		source, err := scanner.FromCIDR(spec)
		if err == nil {
			if size, ok := source.Size(); ok {
				logger.Info("scanning CIDR range", "range", spec, "addresses", size)
			}
			return source, nil
		}
		logger.Warn("invalid CIDR notation, treating as a single address", "input", spec, "error", err)
		spec = strings.SplitN(spec, "/", 2)[0]
	}

	addr, err := netip.ParseAddr(spec)
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("%w: %q", scanner.ErrInvalidRange, spec)
	}
	logger.Info("scanning address and neighborhood", "address", spec, "spread", neighborhoodSpread)
	return scanner.FromNeighborhood(addr, neighborhoodSpread)
}

// readAddrFile loads one address per line, dropping blanks and comments.
func readAddrFile(path string, logger *slog.Logger) ([]netip.Addr, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var addrs []netip.Addr
	lines := bufio.NewScanner(f)
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := netip.ParseAddr(line)
		if err != nil || !addr.Is4() {
			logger.Warn("skipping unparseable address", "line", line)
			continue
		}
		addrs = append(addrs, addr)
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s contains no usable addresses", scanner.ErrInvalidRange, path)
	}
	return addrs, nil
}
