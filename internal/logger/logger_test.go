package logger

import (
	"bytes"
	"os"
	"testing"
)

func TestSyncTags_NoPanic(t *testing.T) {
	// Redirect stdout so we don't spam the test output.
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	Info("SYNC", "starting sync_all for user u1")
	Success("SYNC", "sync_klines persisted 120 bars")
	Warn("SYNC", "provider returned NotFound for HK.99999")
	Error("SYNC", "broker unavailable: context deadline exceeded")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	// Just ensure we didn't panic; output is environment-dependent (colors, etc.)
}

func TestBanner_NoPanic(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	Banner("v1.0.0")
	Banner("")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
}

func TestSectionAndStats_DomainValues_NoPanic(t *testing.T) {
	old := os.Stdout
	_, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	Section("ready")
	Stats("schema", "migrated")
	Stats("accounts_synced", 3)
	w.Close()
}
