package templates

import (
	"fmt"
	"html"
	"strings"
)

// RenderNotificationEmail generates branded HTML for a reporter notification.
// The subject is displayed in the header banner, and bodyContent is plain text
// that gets HTML-escaped and has newlines converted to <br> tags. A tracking link
// is only rendered when trackingURL is set.
func RenderNotificationEmail(subject, bodyContent, reportNumber, trackingURL string) string {
	escaped := html.EscapeString(bodyContent)
	htmlBody := strings.ReplaceAll(escaped, "\n", "<br>")
	safeSubject := html.EscapeString(subject)

	var tracking string
	if trackingURL != "" {
		tracking = fmt.Sprintf(`<p class="track"><a href="%s">Check the status of your request</a></p>`, html.EscapeString(trackingURL))
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f5f7; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: #1f6f5c; padding: 32px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 32px 30px; color: #1f2933; line-height: 1.6; font-size: 15px; }
    .reference { color: #52606d; font-size: 13px; }
    .track a { color: #1f6f5c; font-weight: 600; }
    .footer { padding: 24px 30px; text-align: center; color: #7b8794; font-size: 12px; border-top: 1px solid #e4e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      <p>%s</p>
      <p class="reference">Reference: %s</p>
      %s
    </div>
    <div class="footer">
      <p>You are receiving this message because you asked to be updated about your request.</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, htmlBody, html.EscapeString(reportNumber), tracking)
}
