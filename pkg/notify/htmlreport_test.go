package notify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTMLChannelWritesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-report.html")
	ch := NewHTMLChannel(path)

	if err := ch.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("send: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"<strong>10</strong> endpoints tracked",
		"<strong>2</strong> unused (20%)",
		"/legacy",
		"120.0",
		"unused for more than 90 days",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("report missing %q", want)
		}
	}

	// Overwrite, not append: a second send replaces the file.
	if err := ch.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("second send: %v", err)
	}
	again, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("re-read report: %v", err)
	}
	if len(again) != len(data) {
		t.Fatalf("expected identical rewrite, got %d then %d bytes", len(data), len(again))
	}
}
