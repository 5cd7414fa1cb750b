package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	ports "fairshare/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultRowCacheTTL = 30 * time.Second

// Options selects the spreadsheet and credentials. Exactly one of
// ServiceAccountFile or ServiceAccountJSON should be set.
type Options struct {
	SpreadsheetID      string
	SummariesSheet     string
	PointsSheet        string
	ServiceAccountFile string
	ServiceAccountJSON string
	RowCacheTTL        time.Duration
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	summariesSheet string
	pointsSheet    string

	// Summaries sheet rows, cached so a comparison does not read the sheet twice.
	mu                 sync.Mutex
	cachedRows         [][]interface{}
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var (
	_ ports.SummaryReader  = (*Client)(nil)
	_ ports.SummaryWriter  = (*Client)(nil)
	_ ports.PointsExporter = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.SummariesSheet == "" {
		opts.SummariesSheet = "Summaries"
	}
	if opts.PointsSheet == "" {
		opts.PointsSheet = "Points"
	}
	if opts.RowCacheTTL <= 0 {
		opts.RowCacheTTL = defaultRowCacheTTL
	}

	creds, err := credentialsJSON(opts)
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	year := time.Now().Year()
	return &Client{
		svc:                svc,
		spreadsheetID:      opts.SpreadsheetID,
		summariesSheet:     opts.SummariesSheet,
		pointsSheet:        yearPrefixedName(opts.PointsSheet, year),
		cacheValidDuration: opts.RowCacheTTL,
	}, nil
}

// NewFromEnv reads Options from GOOGLE_* environment variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, Options{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SummariesSheet:     strings.TrimSpace(os.Getenv("GOOGLE_SUMMARIES_SHEET_NAME")),
		PointsSheet:        strings.TrimSpace(os.Getenv("GOOGLE_POINTS_SHEET_NAME")),
		ServiceAccountFile: file,
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
	})
}

func credentialsJSON(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.ServiceAccountJSON) != "":
		return []byte(opts.ServiceAccountJSON), nil
	case strings.TrimSpace(opts.ServiceAccountFile) != "":
		b, err := os.ReadFile(opts.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context, creds []byte) (*gsheet.Service, error) {
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) summariesRange() string {
	return fmt.Sprintf("%s!A:H", c.summariesSheet)
}

// rows returns the summaries sheet, served from cache while it is fresh.
func (c *Client) rows(ctx context.Context) ([][]interface{}, error) {
	c.mu.Lock()
	if c.cachedRows != nil && time.Now().Before(c.cacheExpiresAt) {
		rows := c.cachedRows
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.summariesRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.summariesRange(), err)
	}

	c.mu.Lock()
	c.cachedRows = resp.Values
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return resp.Values, nil
}

func (c *Client) invalidateRowCache() {
	c.mu.Lock()
	c.cachedRows = nil
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Client) GetSummary(ctx context.Context, partyID string, period core.Period) (fairness.MonthlySummary, error) {
	rows, err := c.rows(ctx)
	if err != nil {
		return fairness.MonthlySummary{}, err
	}
	summaries, err := parseSummaries(rows)
	if err != nil {
		return fairness.MonthlySummary{}, err
	}
	for _, s := range summaries {
		if s.PartyID == partyID && s.Period == period {
			return s, nil
		}
	}
	return fairness.MonthlySummary{}, fmt.Errorf("%s %s: %w", partyID, period, ports.ErrSummaryNotFound)
}

func (c *Client) ListSummaries(ctx context.Context, period core.Period) ([]fairness.MonthlySummary, error) {
	rows, err := c.rows(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := parseSummaries(rows)
	if err != nil {
		return nil, err
	}
	var out []fairness.MonthlySummary
	for _, s := range summaries {
		if s.Period == period {
			out = append(out, s)
		}
	}
	return out, nil
}

// SaveSummary overwrites the row for (party, period) or appends a new one.
func (c *Client) SaveSummary(ctx context.Context, s fairness.MonthlySummary) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	c.invalidateRowCache()
	rows, err := c.rows(ctx)
	if err != nil {
		return err
	}
	defer c.invalidateRowCache()

	vr := &gsheet.ValueRange{Values: [][]any{summaryRow(s)}}

	if rowNum := findSummaryRow(rows, s.PartyID, s.Period); rowNum > 0 {
		rng := fmt.Sprintf("%s!A%d:H%d", c.summariesSheet, rowNum, rowNum)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.summariesRange(), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.summariesSheet, err)
	}
	return nil
}

// ExportPoints appends one closed period to the points sheet.
func (c *Client) ExportPoints(ctx context.Context, p ports.PeriodPoints) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", c.pointsSheet)
	vr := &gsheet.ValueRange{Values: [][]any{pointsRow(p)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.pointsSheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

func summaryRow(s fairness.MonthlySummary) []any {
	goal := ""
	if s.SavingsGoal != nil {
		goal = centsToDecimal(s.SavingsGoal.Cents)
	}
	return []any{
		string(s.Period),
		s.PartyID,
		s.DisplayName,
		centsToDecimal(s.Income.Cents),
		centsToDecimal(s.TotalSpent.Cents),
		centsToDecimal(s.SharedSpent.Cents),
		centsToDecimal(s.PersonalSpent.Cents),
		goal,
	}
}

func pointsRow(p ports.PeriodPoints) []any {
	return []any{
		string(p.Period),
		p.PartyID,
		p.CoupleID,
		p.Breakdown.SavingsBonus,
		p.Breakdown.LowerSpenderBonus,
		p.Breakdown.GoalBonus,
		p.Breakdown.Total,
		p.FairnessIndex,
		p.ClosedAt.UTC().Format(time.RFC3339),
	}
}

func centsToDecimal(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
