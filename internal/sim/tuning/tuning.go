package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int    `yaml:"tick_rate_hz"`
	SnapshotEveryTicks uint64 `yaml:"snapshot_every_ticks"`
	EventJournalCap    int    `yaml:"event_journal_cap"`

	Fees  Fees  `yaml:"fees"`
	Admin Admin `yaml:"admin"`
}

type Fees struct {
	Required    bool `yaml:"required"`
	MinClaimFee int  `yaml:"min_claim_fee"`
}

type Admin struct {
	ID string `yaml:"id"`
	// Token grants the admin identity at handshake. Empty disables admin
	// connections entirely.
	Token string `yaml:"token"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		SnapshotEveryTicks: 12000,
		EventJournalCap:    4096,
		Admin:              Admin{ID: "admin"},
	}
}
