package config

import (
	"fmt"
	"strings"
)

// ConfigurationError lists missing or invalid settings. Its message is shown
// to the user verbatim.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Validate checks the credentials and identifiers the pipeline needs before
// any backend call. It returns nil or a *ConfigurationError.
func (c *Config) Validate() error {
	e := &ConfigurationError{}

	switch c.STT.Provider {
	case ProviderOpenAI, ProviderGoogle, ProviderMock:
	default:
		e.Invalid = append(e.Invalid, fmt.Sprintf("STT_PROVIDER=%q", c.STT.Provider))
	}
	switch c.Extraction.Provider {
	case ProviderOpenAI, ProviderMock:
	default:
		e.Invalid = append(e.Invalid, fmt.Sprintf("EXTRACTION_PROVIDER=%q", c.Extraction.Provider))
	}

	if c.UsesOpenAI() && c.OpenAI.APIKey == "" {
		e.Missing = append(e.Missing, "OPENAI_API_KEY")
	}
	e.Missing = append(e.Missing, c.missingSheets()...)

	if len(e.Missing) == 0 && len(e.Invalid) == 0 {
		return nil
	}
	return e
}

// ValidateSheets checks only the spreadsheet settings, for commands that
// never call the transcription or extraction backends.
func (c *Config) ValidateSheets() error {
	if missing := c.missingSheets(); len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

func (c *Config) missingSheets() []string {
	var missing []string
	if c.Sheets.SpreadsheetID == "" {
		missing = append(missing, "GOOGLE_SHEET_ID")
	}
	if c.Sheets.ServiceAccountEmail == "" {
		missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_EMAIL")
	}
	if c.Sheets.PrivateKey == "" {
		missing = append(missing, "GOOGLE_PRIVATE_KEY")
	}
	return missing
}
