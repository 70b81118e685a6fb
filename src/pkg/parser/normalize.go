package parser

import "strings"

/*
NormalizeLines collapses CRLF, squeezes runs of three or more spaces into one
and returns the trimmed non-empty lines.
*/
func NormalizeLines(text string) []string {
	text = crlfRegexp.ReplaceAllString(text, "\n")
	text = wideGapRegexp.ReplaceAllString(text, " ")

	rawLines := strings.Split(text, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

/*
cleanName drops every rune that is not a letter or a space, collapses whitespace, trims and
truncates to MaxNameLength runes.
*/
func cleanName(raw string) (name string, truncated bool) {
	name = nonNameRuneRegex.ReplaceAllString(raw, "")
	name = spacesRegexp.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	runes := []rune(name)
	if len(runes) > MaxNameLength {
		name = strings.TrimSpace(string(runes[:MaxNameLength]))
		truncated = true
	}
	return name, truncated
}
