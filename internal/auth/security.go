package auth

import (
	"regexp"

	"github.com/ansel1/merry"
)

// ValidTableNames is a whitelist of tables that may appear in built SQL.
var ValidTableNames = map[string]bool{
	"employees":       true,
	"clients":         true,
	"vendors":         true,
	"daily_rates":     true,
	"quotes":          true,
	"offers":          true,
	"sales_orders":    true,
	"purchase_orders": true,
	"audit_log":       true,
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateTableName checks if a table name is in the whitelist.
func ValidateTableName(table string) error {
	if !ValidTableNames[table] {
		return merry.Errorf("invalid table name %q", table)
	}
	return nil
}

// SanitizeIdentifier ensures an identifier contains only safe characters.
func SanitizeIdentifier(identifier string) (string, error) {
	if !identifierPattern.MatchString(identifier) {
		return "", merry.Errorf("invalid identifier %q", identifier)
	}
	return identifier, nil
}

// ValidateAndSanitizeTable validates and sanitizes a table name.
func ValidateAndSanitizeTable(table string) (string, error) {
	sanitized, err := SanitizeIdentifier(table)
	if err != nil {
		return "", err
	}
	if err := ValidateTableName(sanitized); err != nil {
		return "", err
	}
	return sanitized, nil
}
