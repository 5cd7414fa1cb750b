package google

import (
	"fmt"
	"strings"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
)

var summaryHeaders = []string{"Period", "PartyID", "Name", "Income", "Spent", "Shared", "Personal", "Goal"}

// parseSummaries converts the summaries sheet (header row first) into
// monthly summaries. Columns are located by header name so they may be
// reordered in the spreadsheet. Rows with an invalid period, a missing party
// or unparsable amounts are skipped.
func parseSummaries(values [][]interface{}) ([]fairness.MonthlySummary, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make(map[string]int, len(summaryHeaders))
	var missing []string
	for _, h := range summaryHeaders {
		idx := indexOf(headers, h)
		if idx == -1 && h != "Goal" && h != "Name" {
			missing = append(missing, h)
		}
		cols[h] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected summaries header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var out []fairness.MonthlySummary
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		s, ok := parseSummaryRow(row, cols)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func parseSummaryRow(row []string, cols map[string]int) (fairness.MonthlySummary, bool) {
	period, err := core.ParsePeriod(safeGet(row, cols["Period"]))
	if err != nil {
		return fairness.MonthlySummary{}, false
	}
	party := safeGet(row, cols["PartyID"])
	if party == "" {
		return fairness.MonthlySummary{}, false
	}

	amounts := make(map[string]int64, 4)
	for _, h := range []string{"Income", "Spent", "Shared", "Personal"} {
		raw := safeGet(row, cols[h])
		if raw == "" {
			amounts[h] = 0
			continue
		}
		cents, ok := parseEurosToCents(raw)
		if !ok {
			return fairness.MonthlySummary{}, false
		}
		amounts[h] = cents
	}

	var goal *core.Money
	if raw := safeGet(row, cols["Goal"]); raw != "" {
		cents, ok := parseEurosToCents(raw)
		if !ok {
			return fairness.MonthlySummary{}, false
		}
		g := core.Cents(cents)
		goal = &g
	}

	return fairness.NewMonthlySummary(fairness.SummaryInput{
		PartyID:       party,
		DisplayName:   safeGet(row, cols["Name"]),
		Period:        period,
		Income:        core.Cents(amounts["Income"]),
		TotalSpent:    core.Cents(amounts["Spent"]),
		SharedSpent:   core.Cents(amounts["Shared"]),
		PersonalSpent: core.Cents(amounts["Personal"]),
		SavingsGoal:   goal,
	}), true
}

// findSummaryRow returns the 1-based sheet row holding (party, period), or 0.
func findSummaryRow(values [][]interface{}, partyID string, period core.Period) int {
	if len(values) == 0 {
		return 0
	}
	headers := toStrings(values[0])
	colPeriod := indexOf(headers, "Period")
	colParty := indexOf(headers, "PartyID")
	if colPeriod == -1 || colParty == -1 {
		return 0
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if safeGet(row, colParty) == partyID && safeGet(row, colPeriod) == string(period) {
			return i + 1
		}
	}
	return 0
}

// parseEurosToCents accepts plain decimals ("1234.5", "12,34") and values
// rendered with a euro sign and thousands separators ("€1.234,56").
func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		// "1.234,56": dot groups thousands, comma is the decimal separator.
		s = strings.ReplaceAll(s, ".", "")
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, false
	}
	return cents, true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return strings.TrimSpace(arr[idx])
}
