package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boxchat/boxchat-go/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	return events
}

func TestFilterByConnectionID(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryMessage},
		{Timestamp: ts, ConnectionID: "conn-2", Category: log.CategoryMessage},
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryMessage},
	}
	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.blog")

	var buf bytes.Buffer
	if err := RunFilter(path, FilterOptions{Output: outPath, ConnID: "conn-1"}, &buf); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readAll(t, outPath)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	for _, e := range got {
		if e.ConnectionID != "conn-1" {
			t.Errorf("expected conn-1, got %s", e.ConnectionID)
		}
	}
	if !strings.Contains(buf.String(), "Filtered 2 events") {
		t.Errorf("unexpected summary: %q", buf.String())
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base},
		{Timestamp: base.Add(10 * time.Minute)},
		{Timestamp: base.Add(20 * time.Minute)},
		{Timestamp: base.Add(30 * time.Minute)},
	}
	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.blog")

	opts := FilterOptions{
		Output:    outPath,
		TimeStart: base.Add(5 * time.Minute).Format(time.RFC3339),
		TimeEnd:   base.Add(25 * time.Minute).Format(time.RFC3339),
	}
	var buf bytes.Buffer
	if err := RunFilter(path, opts, &buf); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if got := readAll(t, outPath); len(got) != 2 {
		t.Errorf("expected 2 events, got %d", len(got))
	}
}

func TestFilterByLayerAndRemote(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerTransport, RemoteAddr: "10.0.0.1:16999"},
		{Timestamp: ts, Layer: log.LayerCrypto, RemoteAddr: "10.0.0.1:16999"},
		{Timestamp: ts, Layer: log.LayerCrypto, RemoteAddr: "10.0.0.2:16999"},
	}
	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.blog")

	var buf bytes.Buffer
	err := RunFilter(path, FilterOptions{Output: outPath, Layer: "crypto", RemoteAddr: "10.0.0.1:16999"}, &buf)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	got := readAll(t, outPath)
	if len(got) != 1 || got[0].Layer != log.LayerCrypto {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, nil)
	outPath := filepath.Join(t.TempDir(), "filtered.blog")

	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"no output", FilterOptions{}},
		{"bad layer", FilterOptions{Output: outPath, Layer: "service"}},
		{"bad direction", FilterOptions{Output: outPath, Direction: "up"}},
		{"bad category", FilterOptions{Output: outPath, Category: "snapshot"}},
		{"bad time", FilterOptions{Output: outPath, TimeStart: "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RunFilter(path, tt.opts, &buf); err == nil {
				t.Error("expected error")
			}
		})
	}
}
