package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout is fixed-width so that TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// normalizeAddress lowercases a hex address so lookups ignore checksum casing.
func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// prepareRecord validates a new record and fills generated fields.
func prepareRecord(a *ApprovalRecord, now time.Time) error {
	if a == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if a.Campaign == "" {
		return fmt.Errorf("%w: campaign is required", ErrInvalidRecord)
	}
	if a.Status == "" {
		return fmt.Errorf("%w: status is required", ErrInvalidRecord)
	}
	if a.ID == "" {
		a.ID = generateID()
	}
	a.Campaign = normalizeAddress(a.Campaign)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.CreatedAt
	return nil
}

// filterClause builds a WHERE clause for ListApprovals. placeholder renders
// the n-th (1-based) bind parameter in the driver's syntax.
func filterClause(filter ApprovalFilter, placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = "+placeholder(len(args)))
	}
	if filter.Campaign != "" {
		args = append(args, normalizeAddress(filter.Campaign))
		conds = append(conds, "campaign = "+placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
