package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	raw := `
protocol_version: "1.0"
tick_rate_hz: 50
snapshot_every_ticks: 600
event_journal_cap: 128
fees:
  required: true
  min_claim_fee: 250
admin:
  id: root
  token: hunter2
`
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 50 || got.SnapshotEveryTicks != 600 || got.EventJournalCap != 128 {
		t.Fatalf("loop params = %+v", got)
	}
	if !got.Fees.Required || got.Fees.MinClaimFee != 250 {
		t.Fatalf("fees = %+v", got.Fees)
	}
	if got.Admin.ID != "root" || got.Admin.Token != "hunter2" {
		t.Fatalf("admin = %+v", got.Admin)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("fees: [not a map"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.TickRateHz != 20 || d.EventJournalCap != 4096 || d.SnapshotEveryTicks != 12000 {
		t.Fatalf("defaults = %+v", d)
	}
	if d.Fees.Required {
		t.Fatalf("fees gated by default")
	}
	if d.Admin.ID != "admin" || d.Admin.Token != "" {
		t.Fatalf("admin defaults = %+v", d.Admin)
	}
}
