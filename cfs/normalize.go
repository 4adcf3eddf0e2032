package cfs

import (
	"path"
	"strings"
	"unicode"
)

const (
	minPhoneDigits   = 7
	maxFileNameLen   = 120
	fallbackFileName = "attachment"
)

// normalizePhone strips everything but digits, keeping a leading +.
// "+1 (555) 123-4567" becomes "+15551234567".
func normalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	if strings.HasPrefix(raw, "+") {
		b.WriteByte('+')
	}
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	if digits < minPhoneDigits {
		return "", false
	}
	return b.String(), true
}

func normalizeEmail(raw string) (string, bool) {
	e := strings.ToLower(strings.TrimSpace(raw))
	at := strings.Index(e, "@")
	if at <= 0 || at == len(e)-1 || strings.ContainsFunc(e, unicode.IsSpace) {
		return "", false
	}
	return e, true
}

// splitIndicators turns a free-text comma list into a lower-cased set, keeping first-seen order
func splitIndicators(raw string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		v := strings.ToLower(strings.TrimSpace(part))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// sanitizeFileName keeps the base name and replaces anything outside [A-Za-z0-9._-]
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
	clean = strings.Trim(clean, "._")
	if clean == "" {
		return fallbackFileName
	}
	if len(clean) > maxFileNameLen {
		ext := path.Ext(clean)
		if len(ext) > 16 {
			ext = ""
		}
		clean = clean[:maxFileNameLen-len(ext)] + ext
	}
	return clean
}
