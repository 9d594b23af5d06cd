package contacts

import (
	"regexp"
	"strings"
)

var (
	spokenAtRe  = regexp.MustCompile(`\s*\bat\b\s*`)
	nonDigitRe  = regexp.MustCompile(`\D`)
	wordDigitRe = regexp.MustCompile(`\b(zero|one|two|three|four|five|six|seven|eight|nine)\b`)
)

// knownDomains are tried when a spoken email never produced an "@".
var knownDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "icloud.com"}

var wordToDigit = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
}

// NormalizeEmail repairs emails as spoken: lower-cases and trims, turns the
// standalone word "at" into "@", inserts "@" before a known domain suffix,
// and as a last resort joins all-but-last whitespace token as the local part
// against the last token as the domain.
func NormalizeEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	normalized = spokenAtRe.ReplaceAllString(normalized, "@")

	if !strings.Contains(normalized, "@") {
		for _, domain := range knownDomains {
			if strings.Contains(normalized, domain) {
				normalized = strings.Replace(normalized, domain, "@"+domain, 1)
				break
			}
		}
	}

	if !strings.Contains(normalized, "@") {
		parts := strings.Fields(normalized)
		if len(parts) >= 2 {
			normalized = strings.Join(parts[:len(parts)-1], "") + "@" + parts[len(parts)-1]
		}
	}

	if strings.Contains(normalized, "@") {
		normalized = strings.Join(strings.Fields(normalized), "")
	}
	return normalized
}

// NormalizePhone converts spoken digits ("five five five") to numerals and
// strips every remaining non-digit character.
func NormalizePhone(phone string) string {
	result := wordDigitRe.ReplaceAllStringFunc(strings.ToLower(phone), func(w string) string {
		return wordToDigit[w]
	})
	return nonDigitRe.ReplaceAllString(result, "")
}
