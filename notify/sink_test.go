package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sends []time.Time
	ok    bool
}

func (f *fakeNotifier) Send(scanner.ServerRecord) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, time.Now())
	return f.ok
}

func (f *fakeNotifier) Close() {}

func (f *fakeNotifier) sendTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.sends...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord(ip string) scanner.ServerRecord {
	return scanner.ServerRecord{IP: ip, Port: 25565, Version: "1.20.4", PlayersMax: 20}
}

func TestSinkSpacingBetweenConcurrentSends(t *testing.T) {
	notifier := &fakeNotifier{ok: true}
	spacing := 100 * time.Millisecond
	sink := NewSink(context.Background(), notifier, true, SpacingLimiter(spacing), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Deliver(testRecord("192.0.2.1"))
		}()
	}
	wg.Wait()

	times := notifier.sendTimes()
	if len(times) != 3 {
		t.Fatalf("notifier saw %d sends, want 3", len(times))
	}
	for i := 1; i < len(times); i++ {
		prev, cur := times[i-1], times[i]
		if cur.Before(prev) {
			prev, cur = cur, prev
		}
		if gap := cur.Sub(prev); gap < spacing-10*time.Millisecond {
			t.Errorf("sends %d and %d only %v apart, want at least %v", i-1, i, gap, spacing)
		}
	}
}

func TestSinkBatchedDrainsOnClose(t *testing.T) {
	notifier := &fakeNotifier{ok: true}
	sink := NewSink(context.Background(), notifier, false, nil, testLogger())

	for i := 0; i < 5; i++ {
		sink.Deliver(testRecord("192.0.2.1"))
	}
	sink.Close()

	if got := len(notifier.sendTimes()); got != 5 {
		t.Fatalf("notifier saw %d sends after close, want 5", got)
	}
}

func TestSinkCloseIdempotent(t *testing.T) {
	sink := NewSink(context.Background(), &fakeNotifier{ok: true}, false, nil, testLogger())
	sink.Deliver(testRecord("192.0.2.1"))
	sink.Close()
	sink.Close()
}

func TestSinkDeliverAfterShutdownNeverQueues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	notifier := &fakeNotifier{ok: true}
	sink := NewSink(ctx, notifier, false, nil, testLogger())
	cancel()
	<-sink.done

	for i := 0; i < 20; i++ {
		sink.Deliver(testRecord("192.0.2.1"))
	}
	// Every record must take the console fallback; none may sit in the
	// buffer behind the dead consumer.
	if n := len(sink.queue); n != 0 {
		t.Fatalf("%d records stranded in the queue after shutdown", n)
	}
	if n := len(notifier.sendTimes()); n != 0 {
		t.Fatalf("notifier saw %d sends after shutdown", n)
	}
}

func TestSinkDeliverAfterShutdownDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewSink(ctx, &fakeNotifier{ok: true}, false, nil, testLogger())
	cancel()
	<-sink.done

	done := make(chan struct{})
	go func() {
		defer close(done)
		sink.Deliver(testRecord("192.0.2.1"))
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked after consumer shutdown")
	}
}

func TestPrintRecordFormat(t *testing.T) {
	rec := scanner.ServerRecord{
		IP:                "203.0.113.5",
		Port:              25565,
		Version:           "1.20.4",
		PlayersOnline:     2,
		PlayersMax:        20,
		LatencyMs:         37.5,
		Description:       "Whitelisted SMP",
		PossibleWhitelist: true,
		PlayerSamples:     []scanner.PlayerSample{{Name: "steve"}, {Name: "alex"}},
	}
	var sb strings.Builder
	PrintRecord(&sb, rec)
	out := sb.String()

	for _, want := range []string{
		"MINECRAFT SERVER FOUND: 203.0.113.5:25565",
		"Version: 1.20.4",
		"Players: 2/20",
		"Latency: 37.5ms",
		"Possible Whitelist: Yes",
		"Description: Whitelisted SMP",
		"Online Players: steve, alex",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintRecordOmitsEmptySamples(t *testing.T) {
	var sb strings.Builder
	PrintRecord(&sb, testRecord("203.0.113.5"))
	out := sb.String()
	if strings.Contains(out, "Online Players") {
		t.Errorf("output has a player list for an empty sample:\n%s", out)
	}
	if !strings.Contains(out, "Possible Whitelist: No/Unknown") {
		t.Errorf("output missing the unknown whitelist marker:\n%s", out)
	}
}
