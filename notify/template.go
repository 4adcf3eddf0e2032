package notify

import "fmt"

// Template is a reporter-facing message. ShortBody is used for SMS when set.
type Template struct {
	Tag       string
	Subject   string
	Body      string
	ShortBody string
}

// Template tags
const (
	TagReceived      = "received"
	TagTriaged       = "triaged"
	TagVerified      = "verified"
	TagClosed        = "closed"
	TagMerged        = "merged"
	TagDispatched    = "dispatched"
	TagStatusUpdated = "status_updated"
)

// Received is sent once a request has been recorded
func Received() Template {
	return Template{
		Tag:       TagReceived,
		Subject:   "We received your request",
		Body:      "Thank you for reaching out. Your request has been received and a member of our team will review it shortly.",
		ShortBody: "We received your request and will review it shortly.",
	}
}

// Triaged is sent after the first assessment
func Triaged() Template {
	return Template{
		Tag:       TagTriaged,
		Subject:   "Your request is under review",
		Body:      "Your request has been reviewed by our intake team and is being prioritized. We will contact you if we need more information.",
		ShortBody: "Your request is under review.",
	}
}

// Verified is sent once the report has been verified
func Verified() Template {
	return Template{
		Tag:       TagVerified,
		Subject:   "Your request has been verified",
		Body:      "We have verified the details of your request. Our team is now arranging next steps.",
		ShortBody: "Your request has been verified.",
	}
}

// Closed is sent on dismissal and names the closure status
func Closed(statusLabel string) Template {
	return Template{
		Tag:       TagClosed,
		Subject:   "Your request has been closed",
		Body:      fmt.Sprintf("Your request has been closed with the status: %s. If you still need help, please submit a new request.", statusLabel),
		ShortBody: fmt.Sprintf("Your request was closed: %s.", statusLabel),
	}
}

// Merged is sent when the request is linked to an existing report
func Merged() Template {
	return Template{
		Tag:       TagMerged,
		Subject:   "Your request was combined with an existing report",
		Body:      "Your request describes a situation we are already working on, so it has been combined with an existing report. You will keep receiving updates.",
		ShortBody: "Your request was combined with an existing report.",
	}
}

// Dispatched is sent when assistance has been dispatched
func Dispatched() Template {
	return Template{
		Tag:       TagDispatched,
		Subject:   "Assistance is on the way",
		Body:      "Your request has been assigned to a response team. They will follow up with you directly.",
		ShortBody: "Assistance has been dispatched for your request.",
	}
}

// StatusUpdated is sent on a manual status change and names the new status
func StatusUpdated(statusLabel string) Template {
	return Template{
		Tag:       TagStatusUpdated,
		Subject:   "Your request has been updated",
		Body:      fmt.Sprintf("The status of your request is now: %s.", statusLabel),
		ShortBody: fmt.Sprintf("Request status: %s.", statusLabel),
	}
}
