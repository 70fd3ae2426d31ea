// Package accounts parses the free-text account and comment inputs.
package accounts

import (
	"strings"

	"buzzrunner/pkg/models"
)

// Parse turns multi-line "username,password[,twofa]" text into accounts.
// Blank lines and lines starting with '#' are skipped. Lines with fewer
// than two fields are dropped silently; malformed input never aborts
// parsing.
func Parse(text string) []models.Account {
	var accs []models.Account
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		if len(parts) < 2 {
			continue
		}
		acc := models.Account{
			Username: strings.TrimSpace(parts[0]),
			Password: strings.TrimSpace(parts[1]),
		}
		if len(parts) > 2 {
			acc.TwoFA = strings.TrimSpace(parts[2])
		}
		accs = append(accs, acc)
	}
	return accs
}

// ParseComments splits the comment input into candidate comment texts,
// one per non-blank line.
func ParseComments(text string) []string {
	var comments []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		comments = append(comments, line)
	}
	return comments
}
