package channel

import "strings"

// censorReplacement substitutes every configured sensitive word.
const censorReplacement = "**"

// Censor applies the outbound message policy: length clamp first, then
// substring censorship. A word cut in half by the clamp is no longer
// censored.
func Censor(body string, maxLen int, words []string) string {
	if maxLen > 0 && len(body) > maxLen {
		body = body[:maxLen]
	}
	for _, w := range words {
		if w == "" {
			continue
		}
		body = strings.ReplaceAll(body, w, censorReplacement)
	}
	return body
}
