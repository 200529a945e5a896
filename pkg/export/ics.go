package export

import (
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	icsProductID = "-//room-scheduling-api//timetable//EN"
	icsUntilForm = "20060102T150405Z"
	icsLocalForm = "20060102T150405"
)

// Event is a weekly recurring calendar entry. Start and End describe the
// first occurrence; Until is the last instant a recurrence may start.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	Until       time.Time
}

// ICSExporter renders weekly recurring events as an iCalendar feed.
type ICSExporter struct {
	now func() time.Time
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{now: time.Now}
}

// ContentType returns the iCalendar MIME type.
func (e *ICSExporter) ContentType() string { return "text/calendar" }

// Extension returns the iCalendar file extension.
func (e *ICSExporter) Extension() string { return "ics" }

// Render serialises the events into a VCALENDAR document.
func (e *ICSExporter) Render(name string, events []Event) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	stamp := e.now().UTC()
	for _, ev := range events {
		if ev.UID == "" {
			return nil, errors.New("ics event requires a uid")
		}
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("ics event %s ends before it starts", ev.UID)
		}
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		if tzid, ok := zoneID(ev.Start.Location()); ok {
			param := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{tzid}}
			vevent.SetProperty(ics.ComponentPropertyDtStart, ev.Start.Format(icsLocalForm), param)
			vevent.SetProperty(ics.ComponentPropertyDtEnd, ev.End.In(ev.Start.Location()).Format(icsLocalForm), param)
		} else {
			vevent.SetStartAt(ev.Start)
			vevent.SetEndAt(ev.End)
		}
		vevent.SetSummary(ev.Summary)
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if !ev.Until.IsZero() {
			vevent.AddRrule(fmt.Sprintf("FREQ=WEEKLY;UNTIL=%s", ev.Until.UTC().Format(icsUntilForm)))
		}
	}
	return []byte(cal.Serialize()), nil
}

// zoneID returns the IANA name of loc when it can be written as a TZID. Weekly
// rules anchored in a named zone keep their wall-clock time across DST changes.
func zoneID(loc *time.Location) (string, bool) {
	if loc == nil || loc == time.UTC || loc == time.Local {
		return "", false
	}
	name := loc.String()
	if name == "" || name == "UTC" || name == "Local" {
		return "", false
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", false
	}
	return name, true
}
