package sqlite

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// categorySeparator joins categories into a single column.
const categorySeparator = ","

// parseRFC3339 parses an RFC3339 formatted timestamp string.
// Returns an error if parsing fails with a descriptive message including the field name.
func parseRFC3339(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// parseDate parses an ISO 8601 date column.
func parseDate(value, fieldName string) (civil.Date, error) {
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return d, nil
}

func joinCategories(categories []string) string {
	return strings.Join(categories, categorySeparator)
}

func splitCategories(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, categorySeparator)
}

// appendPagination appends LIMIT and OFFSET clauses to a query builder if values are > 0.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	} else if offset > 0 {
		// SQLite requires LIMIT before OFFSET.
		query.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}
