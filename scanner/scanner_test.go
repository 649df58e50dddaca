package scanner

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/kdltmhl/mc-ip-scanner/checker"
	"github.com/kdltmhl/mc-ip-scanner/checkpoint"
)

type recordingSink struct {
	mu   sync.Mutex
	recs []ServerRecord
}

func (r *recordingSink) Deliver(rec ServerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
}

func (r *recordingSink) records() []ServerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServerRecord(nil), r.recs...)
}

func mustAddr(s string) netip.Addr { return netip.MustParseAddr(s) }

// respondAt answers only for one address and reports everything else as down.
func respondAt(addr string) checker.Checker {
	return fakeChecker{fn: func(host string, _ uint16, _ time.Duration) (*checker.Status, error) {
		if host == addr {
			return &checker.Status{Version: "1.20.4", PlayersOnline: 1, PlayersMax: 10}, nil
		}
		return nil, &timeoutErr{}
	}}
}

func TestRunSlash30OneResponsiveHost(t *testing.T) {
	source, err := FromCIDR("192.0.2.4/30")
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{Workers: 4, ProbeTimeout: time.Second}, respondAt("192.0.2.5"), nil, nil, testLogger())

	found, err := s.Run(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d records, want 1", len(found))
	}
	if found[0].IP != "192.0.2.5" || found[0].Port != 25565 {
		t.Errorf("record endpoint = %s:%d", found[0].IP, found[0].Port)
	}

	stats := s.Stats()
	if stats.IPsScanned != 4 {
		t.Errorf("ips scanned = %d want 4", stats.IPsScanned)
	}
	if stats.ServersFound != 1 {
		t.Errorf("servers found = %d want 1", stats.ServersFound)
	}
	if stats.Errors != 3 {
		t.Errorf("errors = %d want 3", stats.Errors)
	}
}

func TestRunCountBoundsInfiniteSource(t *testing.T) {
	source, err := SequentialFrom(mustAddr("11.0.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{Workers: 8, Count: 25, ProbeTimeout: time.Second}, respondAt("none"), nil, nil, testLogger())

	if _, err := s.Run(context.Background(), source); err != nil {
		t.Fatal(err)
	}
	if got := s.Stats().IPsScanned; got != 25 {
		t.Fatalf("ips scanned = %d want 25", got)
	}
}

func TestRunCancellationStopsDispatch(t *testing.T) {
	source, err := SequentialFrom(mustAddr("11.0.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	probed := 0
	chk := fakeChecker{fn: func(string, uint16, time.Duration) (*checker.Status, error) {
		mu.Lock()
		probed++
		if probed == 10 {
			cancel()
		}
		mu.Unlock()
		return nil, &timeoutErr{}
	}}
	s := New(Config{Workers: 4, ProbeTimeout: time.Second}, chk, nil, nil, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, source)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not stop after cancellation")
	}
	if got := s.Stats().IPsScanned; got < 10 {
		t.Fatalf("ips scanned = %d, want at least the 10 probes before cancel", got)
	}
}

func TestRunRealtimeDeliversThroughSink(t *testing.T) {
	source, err := FromCIDR("192.0.2.4/30")
	if err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	s := New(Config{Workers: 4, Realtime: true, ProbeTimeout: time.Second}, respondAt("192.0.2.6"), sink, nil, testLogger())

	found, err := s.Run(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}
	if found != nil {
		t.Fatalf("real-time run returned %d records, want none accumulated", len(found))
	}
	recs := sink.records()
	if len(recs) != 1 || recs[0].IP != "192.0.2.6" {
		t.Fatalf("sink received %+v, want one record for 192.0.2.6", recs)
	}
}

func TestSkippedCountsAsScannedNotError(t *testing.T) {
	s := New(Config{Workers: 1, ProbeTimeout: time.Second}, respondAt("none"), nil, nil, testLogger())
	s.stats = Stats{StartTime: time.Now()}

	s.observe(Outcome{Target: testTarget(), Kind: OutcomeSkipped})

	if s.stats.IPsScanned != 1 {
		t.Errorf("ips scanned = %d want 1", s.stats.IPsScanned)
	}
	if s.stats.Errors != 0 {
		t.Errorf("errors = %d, a skip is not a failure", s.stats.Errors)
	}
	if s.stats.ServersFound != 0 {
		t.Errorf("servers found = %d want 0", s.stats.ServersFound)
	}
	if s.stats.LastAddr != testTarget().Addr {
		t.Errorf("last addr = %s, skips still advance the resume point", s.stats.LastAddr)
	}
}

func TestRunWritesCheckpoint(t *testing.T) {
	store := checkpoint.NewStore(t.TempDir(), testLogger())
	source, err := FromCIDR("192.0.2.0/29")
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{Workers: 2, ProbeTimeout: time.Second}, respondAt("192.0.2.3"), nil, store, testLogger())

	if _, err := s.Run(context.Background(), source); err != nil {
		t.Fatal(err)
	}

	cp := store.Load()
	if cp == nil {
		t.Fatal("no checkpoint written after scan")
	}
	if cp.Stats.IPsScanned != 8 {
		t.Errorf("checkpoint ips scanned = %d want 8", cp.Stats.IPsScanned)
	}
	if cp.Stats.ServersFound != 1 {
		t.Errorf("checkpoint servers found = %d want 1", cp.Stats.ServersFound)
	}
	if _, ok := cp.LastAddr(); !ok {
		t.Errorf("checkpoint last ip %q does not parse", cp.LastIP)
	}
}
