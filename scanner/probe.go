package scanner

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/kdltmhl/mc-ip-scanner/checker"
)

// whitelistHints are matched case-insensitively against the server
// description to flag servers that likely reject unknown players.
var whitelistHints = []string{"whitelist", "private", "invite only", "application"}

const icmpGateTimeout = 2 * time.Second

// Prober executes a single probe under a hard per-target budget.
type Prober struct {
	Checker checker.Checker
	// Timeout is the wall-clock budget for one target.
	Timeout time.Duration
	// Jitter delays each probe by a uniform random duration in [0, Jitter)
	// to spread worker bursts.
	Jitter time.Duration
	// ICMPGate skips the status exchange for hosts that do not answer an
	// ICMP echo. Loses servers behind ICMP-silent firewalls; opt-in.
	ICMPGate bool
	// SynGate sends a raw TCP SYN first and skips hosts whose port is not
	// open. Requires privileges; validated via InitSynFilter.
	SynGate bool

	Log *slog.Logger

	// Gate hooks, nil selects the real implementations. Tests substitute
	// fakes here.
	pingFn func(host string, timeout time.Duration) bool
	synFn  func(host string, port uint16) (bool, error)
}

// Probe checks one target and classifies the outcome. A shutdown request
// never interrupts a probe in flight; the budget timer is the only
// abandonment mechanism.
func (p *Prober) Probe(target Target) Outcome {
	if p.Jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(p.Jitter))))
	}

	budget := p.Timeout
	if budget <= 0 {
		budget = 20 * time.Second
	}
	start := time.Now()
	host := target.Addr.String()

	ping := p.pingFn
	if ping == nil {
		ping = icmpReachable
	}
	syn := p.synFn
	if syn == nil {
		syn = synPortOpen
	}

	if p.ICMPGate && !ping(host, icmpGateTimeout) {
		return Outcome{Target: target, Kind: OutcomeNotFound}
	}
	if p.SynGate {
		open, err := syn(host, target.Port)
		if err != nil {
			p.Log.Debug("syn prefilter failed, probing anyway", "host", host, "error", err)
		} else if !open {
			return Outcome{Target: target, Kind: OutcomeNotFound}
		}
	}

	// The gates can eat the budget on slow paths; give up on the exchange
	// once less than half of it remains.
	if time.Since(start) > budget/2 {
		return Outcome{Target: target, Kind: OutcomeSkipped}
	}
	remaining := budget - time.Since(start)

	type checkResult struct {
		status *checker.Status
		err    error
	}
	// Buffered so a late completion never blocks the abandoned goroutine;
	// its result is dropped, not merged.
	resultCh := make(chan checkResult, 1)
	go func() {
		status, err := p.Checker.Check(host, target.Port, remaining)
		resultCh <- checkResult{status: status, err: err}
	}()

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return Outcome{Target: target, Kind: classifyError(res.err), Err: res.err}
		}
		return Outcome{Target: target, Kind: OutcomeFound, Server: buildRecord(target, res.status, start)}
	case <-timer.C:
		p.Log.Debug("probe abandoned on budget", "host", host, "port", target.Port, "budget", remaining)
		return Outcome{Target: target, Kind: OutcomeTimeout}
	}
}

func classifyError(err error) OutcomeKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	// Refused, unreachable and protocol errors all count the same way.
	return OutcomeError
}

func buildRecord(target Target, status *checker.Status, start time.Time) *ServerRecord {
	latency := status.Latency
	if latency <= 0 {
		// No dedicated ping measurement; fall back to the full call time.
		latency = time.Since(start)
	}

	rec := &ServerRecord{
		IP:                target.Addr.String(),
		Port:              target.Port,
		Version:           status.Version,
		PlayersOnline:     status.PlayersOnline,
		PlayersMax:        status.PlayersMax,
		LatencyMs:         float64(latency.Microseconds()) / 1000.0,
		Description:       status.Description,
		PossibleWhitelist: guessWhitelist(status.Description),
	}
	for _, sample := range status.Players {
		rec.PlayerSamples = append(rec.PlayerSamples, PlayerSample{Name: sample.Name})
	}
	return rec
}

func guessWhitelist(description string) bool {
	lowered := strings.ToLower(description)
	for _, hint := range whitelistHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}

// icmpReachable sends a single ICMP echo and reports whether a reply came
// back inside the timeout.
func icmpReachable(host string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
