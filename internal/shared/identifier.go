package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

var identifierFolder = cases.Fold()

// NormalizeIdentifier case-folds and trims a principal identifier so lookups
// match regardless of how the address was typed.
func NormalizeIdentifier(raw string) string {
	return identifierFolder.String(strings.TrimSpace(raw))
}
