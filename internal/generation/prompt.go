// Package generation turns conversation state into a validated reply: it
// fills prompt templates, calls the text generation backend with a bounded
// retry policy, and parses the backend output into a GeneratedResponse.
package generation

import (
	"regexp"
	"strings"
)

var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// ComposePrompt substitutes {{key}} placeholders in template with vars.
// Unknown keys are replaced by the empty string. Substituted values are not
// rescanned.
func ComposePrompt(template string, vars map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholderRE.FindStringSubmatch(m)[1]
		return vars[key]
	})
}

// JoinLines renders a list as "- item" lines, skipping blanks.
func JoinLines(items []string) string {
	var b strings.Builder
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	return b.String()
}
