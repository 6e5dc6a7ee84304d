package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	eventDateLayout = "2006-01-02"
	eventTimeLayout = "15:04"
)

var (
	severityNames = map[Severity]string{
		SeverityLow:      "low",
		SeverityModerate: "moderate",
		SeverityHigh:     "high",
	}

	reportTypeWire = map[ReportType]string{
		WaterLog:      "Water Log",
		DrainageBlock: "Drainage Block",
	}
)

// String returns the lowercase textual form used by the UI ("low", "moderate", "high").
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Valid reports whether s is one of Low, Moderate or High.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// Wire returns the capitalized form sent to the API.
func (s Severity) Wire() string {
	return capitalize(s.String())
}

// ParseSeverity accepts the lowercase or wire form, case-insensitively.
func ParseSeverity(value string) (Severity, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for s, name := range severityNames {
		if name == v {
			return s, nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", value)
}

// String returns the camel-case identifier used by the UI ("waterLog", "drainageBlock").
func (t ReportType) String() string {
	switch t {
	case WaterLog:
		return "waterLog"
	case DrainageBlock:
		return "drainageBlock"
	default:
		return fmt.Sprintf("reportType(%d)", int(t))
	}
}

// Valid reports whether t is Water Log or Drainage Block.
func (t ReportType) Valid() bool {
	_, ok := reportTypeWire[t]
	return ok
}

// Wire returns the spaced title sent to the API.
func (t ReportType) Wire() string {
	if w, ok := reportTypeWire[t]; ok {
		return w
	}
	return ""
}

// ParseReportType accepts the wire form ("Water Log") in any case, the UI
// identifier ("waterLog") or a kebab-case flag value ("water-log").
func ParseReportType(value string) (ReportType, error) {
	v := strings.TrimSpace(value)
	for t, w := range reportTypeWire {
		if strings.EqualFold(v, w) || strings.EqualFold(v, t.String()) || strings.EqualFold(v, strings.ReplaceAll(strings.ToLower(w), " ", "-")) {
			return t, nil
		}
	}
	return WaterLog, fmt.Errorf("unknown report type %q", value)
}

// capitalize upper-cases the first rune and leaves the rest untouched.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// FormatEventDateTime splits a timestamp into the wire date and time fields
// in the timestamp's own location.
func FormatEventDateTime(t time.Time) (date, clockTime string) {
	return t.Format(eventDateLayout), t.Format(eventTimeLayout)
}

// ComposePayload derives the report payload from a draft and the uploaded
// image URL. The event date and time come from the package clock.
func ComposePayload(draft ReportDraft, upload UploadResult) (ReportPayload, error) {
	if draft.Location == nil || !draft.Location.Valid() {
		return ReportPayload{}, NewFailure(KindInvalidLocation, "Invalid latitude or longitude for the current location.", nil)
	}
	if !draft.ReportType.Valid() || !draft.Severity.Valid() {
		err := fmt.Errorf("report type %d or severity %d out of range", int(draft.ReportType), int(draft.Severity))
		return ReportPayload{}, NewFailure(KindUnknown, "Invalid report type or severity.", err)
	}
	if upload.ImageURL == "" {
		return ReportPayload{}, NewFailure(KindUploadFailed, "Image upload failed", nil)
	}

	date, at := FormatEventDateTime(clock.Now())
	return ReportPayload{
		Lat:         draft.Location.Latitude,
		Lon:         draft.Location.Longitude,
		Severity:    draft.Severity.Wire(),
		ReportType:  draft.ReportType.Wire(),
		EventDate:   date,
		EventTime:   at,
		ImageURL:    upload.ImageURL,
		Description: draft.Description,
	}, nil
}
