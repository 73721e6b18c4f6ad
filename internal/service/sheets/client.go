// Package sheets stores rows in the tabs of one Google Sheets spreadsheet.
// Each tab is a destination.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/service/rows"
)

const (
	valueInputRaw  = "RAW"
	insertRows     = "INSERT_ROWS"
	listFields     = "sheets(properties(sheetId,title))"
	defaultTimeout = 30 * time.Second
)

var (
	// ErrDestinationExists is returned when creating or renaming onto an existing tab.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrDestinationNotFound is returned when a tab does not exist.
	ErrDestinationNotFound = errors.New("destination not found")

	// ErrReservedDestination is returned when renaming one of the fixed tabs.
	ErrReservedDestination = errors.New("destination name is reserved")

	// ErrInvalidName is returned for blank tab names.
	ErrInvalidName = errors.New("destination name must not be empty")
)

// Config holds the spreadsheet and service-account settings.
type Config struct {
	SpreadsheetID       string
	ServiceAccountEmail string
	PrivateKey          string
	Timeout             time.Duration
}

// Client wraps the Sheets v4 service for a single spreadsheet.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	timeout       time.Duration
}

// New creates a client authenticated as the configured service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("sheets: service account email and private key are required")
	}

	jwtCfg := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	return NewWithOptions(ctx, cfg, option.WithHTTPClient(jwtCfg.Client(ctx)))
}

// NewWithOptions creates a client with explicit API client options.
func NewWithOptions(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, timeout: timeout}, nil
}

// AppendRows appends rows after the last row of the destination tab.
// Values are stored as given (RAW) and the call is never retried.
func (c *Client) AppendRows(ctx context.Context, destination string, rs []models.Row) error {
	if len(rs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values := make([][]interface{}, 0, len(rs))
	for _, r := range rs {
		values = append(values, []interface{}(r))
	}

	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, a1(destination), &sheetsapi.ValueRange{Values: values}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append to %q: %w", destination, err)
	}

	evt := log.Debug().Str("destination", destination).Int("rows", len(rs))
	if resp.Updates != nil {
		evt = evt.Str("updatedRange", resp.Updates.UpdatedRange)
	}
	evt.Msg("Appended rows")
	return nil
}

// DestinationExists reports whether a tab with that exact name exists.
func (c *Client) DestinationExists(ctx context.Context, name string) (bool, error) {
	tabs, err := c.tabs(ctx)
	if err != nil {
		return false, err
	}
	_, ok := tabs[name]
	return ok, nil
}

// ListDestinations returns the selectable tab names in spreadsheet order.
// The mirror roster is omitted and General is always present.
func (c *Client) ListDestinations(ctx context.Context) ([]string, error) {
	ss, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ss.Sheets)+1)
	hasGeneral := false
	for _, s := range ss.Sheets {
		if s.Properties == nil || !models.IsSelectable(s.Properties.Title) {
			continue
		}
		if s.Properties.Title == models.GeneralDestination {
			hasGeneral = true
		}
		names = append(names, s.Properties.Title)
	}
	if !hasGeneral {
		names = append([]string{models.GeneralDestination}, names...)
	}
	return names, nil
}

// CreateDestination adds a tab and writes the header row for its kind.
func (c *Client) CreateDestination(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	exists, err := c.DestinationExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("sheets: create %q: %w", name, ErrDestinationExists)
	}

	if err := c.batchUpdate(ctx, &sheetsapi.Request{
		AddSheet: &sheetsapi.AddSheetRequest{
			Properties: &sheetsapi.SheetProperties{Title: name},
		},
	}); err != nil {
		return fmt.Errorf("sheets: create %q: %w", name, err)
	}

	header := rows.HeaderFor(name)
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, a1(name), &sheetsapi.ValueRange{Values: [][]interface{}{cells}}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("sheets: write header of %q: %w", name, err)
	}

	log.Info().Str("destination", name).Int("columns", len(header)).Msg("Destination created")
	return nil
}

// RenameDestination renames a course tab. The fixed tabs cannot be renamed.
func (c *Client) RenameDestination(ctx context.Context, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrInvalidName
	}
	if isReserved(from) || isReserved(to) {
		return fmt.Errorf("sheets: rename %q to %q: %w", from, to, ErrReservedDestination)
	}

	tabs, err := c.tabs(ctx)
	if err != nil {
		return err
	}
	id, ok := tabs[from]
	if !ok {
		return fmt.Errorf("sheets: rename %q: %w", from, ErrDestinationNotFound)
	}
	if _, taken := tabs[to]; taken {
		return fmt.Errorf("sheets: rename %q to %q: %w", from, to, ErrDestinationExists)
	}

	if err := c.batchUpdate(ctx, &sheetsapi.Request{
		UpdateSheetProperties: &sheetsapi.UpdateSheetPropertiesRequest{
			Properties: &sheetsapi.SheetProperties{
				SheetId: id,
				Title:   to,
				// sheetId 0 is the first tab and must still be sent.
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "title",
		},
	}); err != nil {
		return fmt.Errorf("sheets: rename %q to %q: %w", from, to, err)
	}

	log.Info().Str("from", from).Str("to", to).Msg("Destination renamed")
	return nil
}

// EnsureDestination creates the tab when it is missing.
func (c *Client) EnsureDestination(ctx context.Context, name string) error {
	exists, err := c.DestinationExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.CreateDestination(ctx, name)
}

func (c *Client) get(ctx context.Context) (*sheetsapi.Spreadsheet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields(listFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get spreadsheet: %w", err)
	}
	return ss, nil
}

// tabs maps tab titles to sheet ids.
func (c *Client) tabs(ctx context.Context) (map[string]int64, error) {
	ss, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			out[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return out, nil
}

func (c *Client) batchUpdate(ctx context.Context, reqs ...*sheetsapi.Request) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.svc.Spreadsheets.
		BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).
		Do()
	return err
}

func isReserved(name string) bool {
	switch name {
	case models.GeneralDestination, models.LeadsDestination, models.MirrorDestination:
		return true
	}
	return false
}

// a1 returns the quoted A1 anchor of a tab, e.g. 'Ciencias 1ºA'!A1.
func a1(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'!A1"
}
