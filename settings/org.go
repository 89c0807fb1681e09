package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// OrganizationDocument is the externally owned organization settings file.
// Its schema is not the flat settings schema; mapOrganization translates it
// once per reload.
type OrganizationDocument struct {
	Organization string `json:"organization"`
	Defaults     struct {
		Model      string `json:"model"`
		LogLevel   string `json:"logLevel"`
		AutoCommit *bool  `json:"autoCommit"`
	} `json:"defaults"`
	CostLimits struct {
		MonthlyUSD *float64 `json:"monthlyUsd"`
		PerTaskUSD *float64 `json:"perTaskUsd"`
	} `json:"costLimits"`
	Telemetry struct {
		Enabled *bool `json:"enabled"`
	} `json:"telemetry"`
}

// OrganizationProvider supplies the organization document. The resolver takes
// it as a constructor dependency so the org layer can come from a file, a
// fleet service, or a test stub.
type OrganizationProvider interface {
	// Load returns the current org document, or ok=false when the
	// organization defines nothing (missing, unreadable, malformed).
	Load() (*OrganizationDocument, bool)
}

// FileOrganizationProvider reads the organization document from a JSON file.
type FileOrganizationProvider struct {
	Path string
}

// Load implements OrganizationProvider with the absent-on-error policy.
func (p FileOrganizationProvider) Load() (*OrganizationDocument, bool) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, false
	}
	var doc OrganizationDocument
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// DefaultOrganizationPath is the conventional location of the org document.
func DefaultOrganizationPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", globalConfigDir, "organization.json")
}

// mapOrganization translates the org document into a partial settings
// overlay. Fields that are missing or fail normalization are omitted; the org
// level then simply does not define those keys.
func mapOrganization(doc *OrganizationDocument) map[Key]any {
	out := make(map[Key]any)
	if doc == nil {
		return out
	}
	if m, ok := NormalizeModel(doc.Defaults.Model); ok {
		out[KeyDefaultModel] = m
	}
	if lvl, ok := NormalizeLogLevel(doc.Defaults.LogLevel); ok {
		out[KeyLogLevel] = lvl
	}
	if doc.Defaults.AutoCommit != nil {
		out[KeyAutoCommit] = *doc.Defaults.AutoCommit
	}
	if doc.CostLimits.MonthlyUSD != nil {
		out[KeyMonthlyBudgetUSD] = *doc.CostLimits.MonthlyUSD
	}
	if doc.CostLimits.PerTaskUSD != nil {
		out[KeyPerTaskBudgetUSD] = *doc.CostLimits.PerTaskUSD
	}
	if doc.Telemetry.Enabled != nil {
		out[KeyTelemetry] = *doc.Telemetry.Enabled
	}
	return out
}
