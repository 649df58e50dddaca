// Package scanner implements the concurrent sweep engine: target
// enumeration, bounded-worker probe dispatch, aggregate statistics, and
// progress checkpointing.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kdltmhl/mc-ip-scanner/checker"
	"github.com/kdltmhl/mc-ip-scanner/checkpoint"
)

// Config carries per-scan tunables. Zero values fall back to the historical
// defaults.
type Config struct {
	// Workers bounds the number of probes in flight. The pool size is the
	// sole concurrency control.
	Workers int
	Port    uint16
	// Jitter is the upper bound of the random pre-probe delay.
	Jitter time.Duration
	// ProbeTimeout is the hard wall-clock budget per target.
	ProbeTimeout time.Duration
	// ProgressInterval triggers a progress report and checkpoint write every
	// time IPsScanned crosses a multiple of it.
	ProgressInterval uint64
	// Count stops dispatch after this many targets. Zero means unlimited,
	// which on an infinite source runs until the context is cancelled.
	Count uint64
	// Realtime delivers each found record synchronously through the sink
	// and makes Run return no records of its own.
	Realtime bool

	ICMPGate     bool
	SynPrefilter bool
}

// Scanner drives one sweep at a time: it feeds targets from a Source to a
// bounded worker pool, folds probe outcomes into Stats, reports progress,
// and checkpoints. Not safe for concurrent Run calls.
type Scanner struct {
	cfg         Config
	prober      *Prober
	sink        ResultSink
	checkpoints *checkpoint.Store
	log         *slog.Logger

	stats Stats
}

// New builds a scanner. sink and store may be nil; found records are then
// only accumulated in the return value and checkpointing is disabled.
func New(cfg Config, chk checker.Checker, sink ResultSink, store *checkpoint.Store, log *slog.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = 50
	}
	if cfg.Port == 0 {
		cfg.Port = 25565
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 20 * time.Second
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = 100
	}

	return &Scanner{
		cfg: cfg,
		prober: &Prober{
			Checker:  chk,
			Timeout:  cfg.ProbeTimeout,
			Jitter:   cfg.Jitter,
			ICMPGate: cfg.ICMPGate,
			SynGate:  cfg.SynPrefilter,
			Log:      log,
		},
		sink:        sink,
		checkpoints: store,
		log:         log,
	}
}

// Stats returns the counters of the most recent scan. Only valid after Run
// has returned.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Run sweeps the source until it is exhausted, the configured count is
// reached, or ctx is cancelled. Cancellation is cooperative: dispatch stops,
// probes already in flight finish and their outcomes are still counted.
// The returned slice holds every found record, or nil in real-time mode
// where the sink has already delivered them.
func (s *Scanner) Run(ctx context.Context, source Source) ([]ServerRecord, error) {
	if source == nil {
		return nil, fmt.Errorf("no target source")
	}

	s.stats = Stats{StartTime: time.Now()}

	jobs := make(chan Target)
	outcomes := make(chan Outcome, s.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				outcomes <- s.prober.Probe(target)
			}
		}()
	}

	// Feeder: an unbuffered jobs channel keeps the pool saturated without
	// ever running ahead of it; a target is handed out the moment a worker
	// frees up.
	go func() {
		defer close(jobs)
		var dispatched uint64
		for {
			if s.cfg.Count > 0 && dispatched == s.cfg.Count {
				return
			}
			if ctx.Err() != nil {
				return
			}
			addr, ok := source.Next()
			if !ok {
				return
			}
			select {
			case jobs <- Target{Addr: addr, Port: s.cfg.Port}:
				dispatched++
			case <-ctx.Done():
				return
			}
		}
	}()

	// Once the feeder closes jobs, in-flight probes drain to completion and
	// the outcome channel closes behind them.
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var found []ServerRecord
	for outcome := range outcomes {
		if rec := s.observe(outcome); rec != nil {
			found = append(found, *rec)
		}
	}

	s.printProgress()
	s.writeCheckpoint()
	s.log.Info("scan complete",
		"ips_scanned", s.stats.IPsScanned,
		"servers_found", s.stats.ServersFound,
		"errors", s.stats.Errors,
	)

	if s.cfg.Realtime {
		return nil, nil
	}
	return found, nil
}

// observe folds one probe outcome into the stats. It runs on the single
// collection goroutine, so counters need no locking.
func (s *Scanner) observe(outcome Outcome) *ServerRecord {
	s.stats.IPsScanned++
	s.stats.LastAddr = outcome.Target.Addr

	var rec *ServerRecord
	switch outcome.Kind {
	case OutcomeFound:
		s.stats.ServersFound++
		rec = outcome.Server
		s.log.Info("server found",
			"ip", rec.IP, "port", rec.Port,
			"version", rec.Version,
			"players", fmt.Sprintf("%d/%d", rec.PlayersOnline, rec.PlayersMax),
		)
		if s.sink != nil {
			s.sink.Deliver(*rec)
		}
	case OutcomeError:
		s.stats.Errors++
		s.log.Debug("probe error", "ip", outcome.Target.Addr.String(), "error", outcome.Err)
	case OutcomeTimeout:
		s.stats.Errors++
	case OutcomeSkipped:
		// Counted as scanned only; a skip is a scheduling artifact, not a
		// target failure.
	}

	if s.stats.IPsScanned%s.cfg.ProgressInterval == 0 {
		s.printProgress()
		s.writeCheckpoint()
	}
	return rec
}

func (s *Scanner) printProgress() {
	elapsed := time.Since(s.stats.StartTime)
	lastIP := ""
	if s.stats.LastAddr.IsValid() {
		lastIP = s.stats.LastAddr.String()
	}
	fmt.Printf("\n--- SCAN PROGRESS ---\n")
	fmt.Printf("IPs scanned: %d\n", s.stats.IPsScanned)
	fmt.Printf("Servers found: %d\n", s.stats.ServersFound)
	fmt.Printf("Errors: %d\n", s.stats.Errors)
	fmt.Printf("Scan rate: %.2f IPs/second\n", s.stats.Rate())
	fmt.Printf("Last IP: %s\n", lastIP)
	fmt.Printf("Elapsed time: %d seconds\n", int(elapsed.Seconds()))
	fmt.Printf("----------------------\n\n")
}

// writeCheckpoint persists the current progress. Failures are logged and
// never interrupt the scan.
func (s *Scanner) writeCheckpoint() {
	if s.checkpoints == nil {
		return
	}
	cp := checkpoint.Checkpoint{
		Timestamp: time.Now(),
		Stats: checkpoint.Stats{
			StartTime:    s.stats.StartTime,
			IPsScanned:   s.stats.IPsScanned,
			ServersFound: s.stats.ServersFound,
			Errors:       s.stats.Errors,
		},
	}
	if s.stats.LastAddr.IsValid() {
		cp.LastIP = s.stats.LastAddr.String()
	}
	if err := s.checkpoints.Save(cp); err != nil {
		s.log.Warn("checkpoint write failed", "error", err)
	}
}
