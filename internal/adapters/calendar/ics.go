// Package calendar exports events as iCalendar files.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	domain "astres/internal/domain/event"
)

// ProductID identifies the generator in exported files.
const ProductID = "-//Son et Astres//Evenements//FR"

// DefaultDuration is used as the event length since events only carry a
// start time.
const DefaultDuration = 2 * time.Hour

// UIDDomain suffixes event ids to form globally unique UIDs.
const UIDDomain = "sonetastres"

// WriteEvent encodes a single-event VCALENDAR to w. Times are written in
// UTC so the file carries no VTIMEZONE.
// PRE: e.Time is HH:MM; loc is the site time zone
// POST: w holds a valid iCalendar document or an error is returned
func WriteEvent(w io.Writer, e domain.Event, loc *time.Location, stamp time.Time) error {
	start, err := e.StartsAt(loc)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", e.ID, UIDDomain))
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(DefaultDuration).UTC())
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	cal.Children = append(cal.Children, ve)

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// FileName returns a download name for the event's calendar file.
func FileName(e domain.Event) string {
	return fmt.Sprintf("son-et-astres-%s.ics", e.Date.Format(domain.DateLayout))
}
