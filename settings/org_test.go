package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMapOrganization(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		monthly, perTask := 500.0, 10.0
		commit, telemetry := false, true

		doc := &OrganizationDocument{Organization: "acme"}
		doc.Defaults.Model = "Opus" // normalized to lower case
		doc.Defaults.LogLevel = "warn"
		doc.Defaults.AutoCommit = &commit
		doc.CostLimits.MonthlyUSD = &monthly
		doc.CostLimits.PerTaskUSD = &perTask
		doc.Telemetry.Enabled = &telemetry

		got := mapOrganization(doc)
		want := map[Key]any{
			KeyDefaultModel:     "opus",
			KeyLogLevel:         "warn",
			KeyAutoCommit:       false,
			KeyMonthlyBudgetUSD: 500.0,
			KeyPerTaskBudgetUSD: 10.0,
			KeyTelemetry:        true,
		}
		if len(got) != len(want) {
			t.Fatalf("mapped %d keys, want %d: %v", len(got), len(want), got)
		}
		for k, v := range want {
			if got[k] != v {
				t.Errorf("%s = %v, want %v", k, got[k], v)
			}
		}
	})

	t.Run("unknown model omitted", func(t *testing.T) {
		doc := &OrganizationDocument{}
		doc.Defaults.Model = "gpt-9"
		if _, ok := mapOrganization(doc)[KeyDefaultModel]; ok {
			t.Error("unknown model mapped, want omitted")
		}
	})

	t.Run("unknown log level omitted", func(t *testing.T) {
		doc := &OrganizationDocument{}
		doc.Defaults.LogLevel = "loud"
		if _, ok := mapOrganization(doc)[KeyLogLevel]; ok {
			t.Error("unknown log level mapped, want omitted")
		}
	})

	t.Run("empty document maps to nothing", func(t *testing.T) {
		if got := mapOrganization(&OrganizationDocument{}); len(got) != 0 {
			t.Errorf("mapped %v, want empty", got)
		}
	})

	t.Run("nil document maps to nothing", func(t *testing.T) {
		if got := mapOrganization(nil); len(got) != 0 {
			t.Errorf("mapped %v, want empty", got)
		}
	})
}

func TestFileOrganizationProvider(t *testing.T) {
	t.Run("missing file absent", func(t *testing.T) {
		p := FileOrganizationProvider{Path: filepath.Join(t.TempDir(), "org.json")}
		if _, ok := p.Load(); ok {
			t.Error("Load() ok = true for missing file")
		}
	})

	t.Run("malformed file absent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "org.json")
		os.WriteFile(path, []byte("<xml/>"), 0o644)
		p := FileOrganizationProvider{Path: path}
		if _, ok := p.Load(); ok {
			t.Error("Load() ok = true for malformed file")
		}
	})

	t.Run("loads and maps", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "org.json")
		os.WriteFile(path, []byte(`{
			"organization": "acme",
			"defaults": {"model": "haiku"},
			"costLimits": {"monthlyUsd": 250}
		}`), 0o644)

		p := FileOrganizationProvider{Path: path}
		doc, ok := p.Load()
		if !ok {
			t.Fatal("Load() ok = false")
		}
		mapped := mapOrganization(doc)
		if mapped[KeyDefaultModel] != "haiku" {
			t.Errorf("default_model = %v, want haiku", mapped[KeyDefaultModel])
		}
		if mapped[KeyMonthlyBudgetUSD] != 250.0 {
			t.Errorf("monthly_budget_usd = %v, want 250", mapped[KeyMonthlyBudgetUSD])
		}
	})
}
