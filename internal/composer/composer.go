// Package composer owns the in-progress report draft and validates it before
// submission.
package composer

import (
	"fmt"
	"sync"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
)

// Field names accepted by SetField.
const (
	FieldReportType  = "reportType"
	FieldSeverity    = "severity"
	FieldDescription = "description"
	FieldImage       = "image"
	FieldLocation    = "location"
)

// Composer holds one ReportDraft. Severity and report type start at their
// defaults (Low, Water Log) and can never be invalid.
type Composer struct {
	mu    sync.Mutex
	draft domain.ReportDraft
}

// New returns a Composer with an empty draft.
func New() *Composer {
	return &Composer{draft: domain.ReportDraft{ReportType: domain.WaterLog, Severity: domain.SeverityLow}}
}

// SetReportType sets the report type. Values outside the enum are rejected
// and leave the draft unchanged.
func (c *Composer) SetReportType(t domain.ReportType) error {
	if !t.Valid() {
		return fmt.Errorf("invalid report type %d", int(t))
	}
	c.mu.Lock()
	c.draft.ReportType = t
	c.mu.Unlock()
	return nil
}

// SetSeverity sets the severity. Values outside the enum are rejected and
// leave the draft unchanged.
func (c *Composer) SetSeverity(s domain.Severity) error {
	if !s.Valid() {
		return fmt.Errorf("invalid severity %d", int(s))
	}
	c.mu.Lock()
	c.draft.Severity = s
	c.mu.Unlock()
	return nil
}

// SetDescription sets the free-text description.
func (c *Composer) SetDescription(d string) {
	c.mu.Lock()
	c.draft.Description = d
	c.mu.Unlock()
}

// SetImage attaches the report photo.
func (c *Composer) SetImage(img domain.ImageRef) {
	c.mu.Lock()
	c.draft.Image = &img
	c.mu.Unlock()
}

// ClearImage removes the report photo.
func (c *Composer) ClearImage() {
	c.mu.Lock()
	c.draft.Image = nil
	c.mu.Unlock()
}

// SetLocation replaces the location wholesale.
func (c *Composer) SetLocation(loc domain.ResolvedLocation) {
	c.mu.Lock()
	c.draft.Location = &loc
	c.mu.Unlock()
}

// SetField sets a draft field by name. Report type and severity also accept
// their textual forms.
func (c *Composer) SetField(field string, value any) error {
	switch field {
	case FieldReportType:
		switch v := value.(type) {
		case domain.ReportType:
			return c.SetReportType(v)
		case string:
			t, err := domain.ParseReportType(v)
			if err != nil {
				return err
			}
			return c.SetReportType(t)
		default:
			return fieldTypeError(field, value)
		}
	case FieldSeverity:
		switch v := value.(type) {
		case domain.Severity:
			return c.SetSeverity(v)
		case string:
			s, err := domain.ParseSeverity(v)
			if err != nil {
				return err
			}
			return c.SetSeverity(s)
		default:
			return fieldTypeError(field, value)
		}
	case FieldDescription:
		v, ok := value.(string)
		if !ok {
			return fieldTypeError(field, value)
		}
		c.SetDescription(v)
	case FieldImage:
		switch v := value.(type) {
		case domain.ImageRef:
			c.SetImage(v)
		case *domain.ImageRef:
			if v == nil {
				c.ClearImage()
			} else {
				c.SetImage(*v)
			}
		case nil:
			c.ClearImage()
		default:
			return fieldTypeError(field, value)
		}
	case FieldLocation:
		switch v := value.(type) {
		case domain.ResolvedLocation:
			c.SetLocation(v)
		case *domain.ResolvedLocation:
			if v == nil {
				return fieldTypeError(field, value)
			}
			c.SetLocation(*v)
		default:
			return fieldTypeError(field, value)
		}
	default:
		return fmt.Errorf("unknown draft field %q", field)
	}
	return nil
}

func fieldTypeError(field string, value any) error {
	return fmt.Errorf("draft field %q: unsupported value type %T", field, value)
}

// Validate checks the image first, then the location, and returns the first
// failure as a *domain.Failure.
func (c *Composer) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft.Image == nil || c.draft.Image.URI == "" {
		return domain.NewFailure(domain.KindMissingImage, "", nil)
	}
	if c.draft.Location == nil || !c.draft.Location.Valid() {
		return domain.NewFailure(domain.KindMissingLocation, "", nil)
	}
	return nil
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() domain.ReportDraft {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.draft
	if d.Image != nil {
		img := *d.Image
		d.Image = &img
	}
	if d.Location != nil {
		loc := *d.Location
		d.Location = &loc
	}
	return d
}

// Reset restores the defaults after a successful submission. The location
// reflects the device, not the submitted report, and is kept.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft = domain.ReportDraft{
		ReportType: domain.WaterLog,
		Severity:   domain.SeverityLow,
		Location:   c.draft.Location,
	}
}
