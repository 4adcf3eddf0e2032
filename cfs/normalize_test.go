package cfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+1 (555) 123-4567", "+15551234567", true},
		{"555.123.4567", "5551234567", true},
		{"1234567", "1234567", true},
		{"+12345", "", false},
		{"call me", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizePhone(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, ok := normalizeEmail(" Jane.Doe@Example.org ")
	assert.True(t, ok)
	assert.Equal(t, "jane.doe@example.org", got)

	for _, bad := range []string{"", "no-at-sign", "@example.org", "jane@", "jane doe@example.org"} {
		_, ok := normalizeEmail(bad)
		assert.False(t, ok, bad)
	}
}

func TestSplitIndicators(t *testing.T) {
	assert.Equal(t, []string{}, splitIndicators(""))
	assert.Equal(t, []string{"a", "b"}, splitIndicators(" A ,b, a,,"))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFileName("C:\\Users\\me\\report.pdf"))
	assert.Equal(t, "attachment", sanitizeFileName("..."))
	assert.Equal(t, "attachment", sanitizeFileName(""))
	assert.Equal(t, "r_sum_.docx", sanitizeFileName("résumé.docx"))

	long := sanitizeFileName(strings.Repeat("a", 200) + ".jpeg")
	assert.Len(t, long, 120)
	assert.True(t, strings.HasSuffix(long, ".jpeg"))
}
