package api

import (
	"testing"
	"time"

	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

func asHashFields(t *testing.T, data map[string]interface{}) map[string]string {
	t.Helper()
	fields := make(map[string]string, len(data))
	for k, v := range data {
		s, ok := v.(string)
		if !ok {
			t.Fatalf("field %q serialized as %T, redis hashes hold strings", k, v)
		}
		fields[k] = s
	}
	return fields
}

func TestTaskSerializationRoundTrip(t *testing.T) {
	completed := time.Now().UTC().Truncate(time.Millisecond)
	in := &SweepTask{
		ID:     "6ba7b810-9dad-41d1-80b4-00c04fd430c8",
		Status: "completed",
		Mode:   ModeCIDR,
		Target: "192.0.2.0/29",
		Port:   25565,
		Count:  0,
		Found: []scanner.ServerRecord{{
			IP: "192.0.2.3", Port: 25565, Version: "1.20.4",
			PlayersOnline: 2, PlayersMax: 20, LatencyMs: 18.2,
			Description: "SMP", PossibleWhitelist: true,
		}},
		Stats:       &SweepStats{IPsScanned: 8, ServersFound: 1, Errors: 7, LastIP: "192.0.2.7"},
		CreatedAt:   completed.Add(-time.Minute),
		CompletedAt: &completed,
	}

	data, err := serializeTask(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := deserializeTask(asHashFields(t, data))
	if err != nil {
		t.Fatal(err)
	}

	if out.ID != in.ID || out.Status != in.Status || out.Mode != in.Mode || out.Target != in.Target {
		t.Errorf("identity fields = %+v", out)
	}
	if out.Port != in.Port || out.Count != in.Count {
		t.Errorf("port/count = %d/%d want %d/%d", out.Port, out.Count, in.Port, in.Count)
	}
	if len(out.Found) != 1 || out.Found[0].IP != "192.0.2.3" || !out.Found[0].PossibleWhitelist {
		t.Errorf("found round-trip = %+v", out.Found)
	}
	if out.Stats == nil || *out.Stats != *in.Stats {
		t.Errorf("stats round-trip = %+v want %+v", out.Stats, in.Stats)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at = %v want %v", out.CreatedAt, in.CreatedAt)
	}
	if out.CompletedAt == nil || !out.CompletedAt.Equal(completed) {
		t.Errorf("completed_at = %v want %v", out.CompletedAt, completed)
	}
}

func TestTaskSerializationPendingTask(t *testing.T) {
	in := &SweepTask{
		ID:        "6ba7b810-9dad-41d1-80b4-00c04fd430c8",
		Status:    "pending",
		Mode:      ModeRandom,
		Port:      25565,
		Count:     1000,
		CreatedAt: time.Now().UTC(),
	}

	data, err := serializeTask(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := deserializeTask(asHashFields(t, data))
	if err != nil {
		t.Fatal(err)
	}

	if out.Found != nil || out.Stats != nil || out.CompletedAt != nil {
		t.Errorf("pending task grew result fields: %+v", out)
	}
	if out.Count != 1000 {
		t.Errorf("count = %d want 1000", out.Count)
	}
}
