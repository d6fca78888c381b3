// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"strings"

	"github.com/zosgo/zosgo/internal/convert"
)

// messageRule recognises host message lines by their leading keyword.
type messageRule struct {
	prefixes []string
	severity string
}

// messageRules are evaluated in order; the first match wins.
var messageRules = []messageRule{
	{prefixes: []string{"error:", "error -", "fatal:"}, severity: "error"},
	{prefixes: []string{"warning:", "warning -", "caution:"}, severity: "warning"},
	{prefixes: []string{"note:", "notice:", "info:"}, severity: "note"},
}

// Classifier moves host messages that were exported among the header lines
// into the payload's messages.
type Classifier struct{}

// NewClassifier creates a new Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Severity returns the severity of a message line, or "" for header text.
func (c *Classifier) Severity(line string) string {
	lower := strings.ToLower(strings.TrimSpace(line))
	for _, rule := range messageRules {
		for _, prefix := range rule.prefixes {
			if strings.HasPrefix(lower, prefix) {
				return rule.severity
			}
		}
	}
	return ""
}

// Apply reclassifies p's header lines in place and returns how many moved.
// Moved lines keep their order and precede existing messages.
func (c *Classifier) Apply(p *convert.Payload) int {
	header := make([]string, 0, len(p.Header))
	var moved []string
	for _, line := range p.Header {
		if c.Severity(line) != "" {
			moved = append(moved, strings.TrimSpace(line))
			continue
		}
		header = append(header, line)
	}
	if len(moved) == 0 {
		return 0
	}
	p.Header = header
	p.Messages = append(moved, p.Messages...)
	return len(moved)
}
