package classify

import (
	"regexp"
	"strings"
)

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes wraps around its JSON output.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON value if junk remains around it.
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	var end int
	if s[start] == '[' {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}
	if end > start {
		s = strings.TrimSpace(s[start : end+1])
	}
	return s
}

var (
	trailingLocationRe = regexp.MustCompile(`\s+[A-Z]{2}\s+\d{5}(-\d{4})?$`)
	trailingCardRe     = regexp.MustCompile(`(?i)\s+x{1,4}\d{4}$`)
	anySpacesRe        = regexp.MustCompile(`\s+`)
)

// CleanDescription tidies a merchant description extracted from a
// statement: trailing city/state/zip and masked card digits are removed.
func CleanDescription(desc string) string {
	desc = trailingLocationRe.ReplaceAllString(desc, "")
	desc = trailingCardRe.ReplaceAllString(desc, "")
	return strings.TrimSpace(anySpacesRe.ReplaceAllString(desc, " "))
}
