package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewTabID returns a globally unique tab identifier.
func NewTabID() string {
	return "tab_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewTabToken returns the opaque per-tab secret handed to the party that
// opened the tab. Possession of the token is the only authorization an
// anonymous diner has.
func NewTabToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
