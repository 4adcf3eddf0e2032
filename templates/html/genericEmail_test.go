package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderNotificationEmailEscapes(t *testing.T) {
	out := RenderNotificationEmail("Update <b>", "line one\nline <two>", "CFS-2026-000001", "")

	assert.Contains(t, out, "Update &lt;b&gt;")
	assert.Contains(t, out, "line one<br>line &lt;two&gt;")
	assert.Contains(t, out, "CFS-2026-000001")
	assert.NotContains(t, out, "Check the status")
}

func TestRenderNotificationEmailTrackingLink(t *testing.T) {
	out := RenderNotificationEmail("s", "b", "CFS-1", "https://help.example.org/track/AB12")

	assert.Contains(t, out, `href="https://help.example.org/track/AB12"`)
}
