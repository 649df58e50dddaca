package checker

import (
	"testing"
	"time"
)

func TestParseStatusFull(t *testing.T) {
	payload := []byte(`{
		"version": {"name": "Paper 1.20.4", "protocol": 765},
		"players": {
			"online": 3, "max": 50,
			"sample": [{"name": "steve", "id": "aaa"}, {"name": "alex", "id": "bbb"}]
		},
		"description": {"text": "A ", "extra": [{"text": "survival", "color": "green"}, {"text": " server"}]}
	}`)

	status, err := parseStatus(payload, 35*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if status.Version != "Paper 1.20.4" || status.Protocol != 765 {
		t.Errorf("version = %q protocol = %d", status.Version, status.Protocol)
	}
	if status.PlayersOnline != 3 || status.PlayersMax != 50 {
		t.Errorf("players = %d/%d", status.PlayersOnline, status.PlayersMax)
	}
	if status.Description != "A survival server" {
		t.Errorf("description = %q, formatting codes should be stripped", status.Description)
	}
	if len(status.Players) != 2 || status.Players[0].Name != "steve" || status.Players[1].ID != "bbb" {
		t.Errorf("sample = %+v", status.Players)
	}
	if status.Latency != 35*time.Millisecond {
		t.Errorf("latency = %v", status.Latency)
	}
}

func TestParseStatusStringDescription(t *testing.T) {
	payload := []byte(`{
		"version": {"name": "1.8.9", "protocol": 47},
		"players": {"online": 0, "max": 20},
		"description": "  A legacy motd  "
	}`)

	status, err := parseStatus(payload, 0)
	if err != nil {
		t.Fatal(err)
	}
	if status.Description != "A legacy motd" {
		t.Errorf("description = %q, want trimmed plain string", status.Description)
	}
	if len(status.Players) != 0 {
		t.Errorf("sample = %+v, want empty", status.Players)
	}
}

func TestParseStatusVersionFallback(t *testing.T) {
	cases := map[string]struct {
		payload string
		want    string
	}{
		"protocol only": {`{"version": {"protocol": 340}, "players": {"max": 10}}`, "Protocol 340"},
		"nothing":       {`{"players": {"max": 10}}`, "Unknown"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, err := parseStatus([]byte(tc.payload), 0)
			if err != nil {
				t.Fatal(err)
			}
			if status.Version != tc.want {
				t.Fatalf("version = %q want %q", status.Version, tc.want)
			}
		})
	}
}

func TestParseStatusMalformed(t *testing.T) {
	if _, err := parseStatus([]byte("not json"), 0); err == nil {
		t.Fatal("expected an error for a non-JSON payload")
	}
}
