package main

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/wesnick/davctl/pkg/davctl"
)

// timeLayouts are the accepted input formats, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
}

// parseWhen parses a user-supplied timestamp. dateOnly reports that the
// value carried no time of day.
func parseWhen(s string) (t time.Time, dateOnly bool, err error) {
	for _, layout := range timeLayouts {
		t, err = time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized time %q (want YYYY-MM-DD HH:MM, RFC3339 or YYYY-MM-DD)", s)
}

// componentTime reads a date/date-time property off a calendar object for
// display. Returns "" when absent or unparsable.
func componentTime(obj *davctl.Object, name string) string {
	comp := obj.Component()
	if comp == nil {
		return ""
	}
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	t, err := prop.DateTime(time.Local)
	if err != nil {
		return prop.Value
	}
	return t.Format("2006-01-02 15:04")
}

// componentText reads a text property off a calendar object for display.
func componentText(obj *davctl.Object, name string) string {
	comp := obj.Component()
	if comp == nil {
		return ""
	}
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}

// splitDateTime renders DTSTART as separate date and time columns.
func splitDateTime(obj *davctl.Object) (date, timeStr string) {
	comp := obj.Component()
	if comp == nil {
		return "", ""
	}
	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return "", ""
	}
	t, err := prop.DateTime(time.Local)
	if err != nil {
		return prop.Value, ""
	}
	if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
		return t.Format("2006-01-02"), "all-day"
	}
	return t.Format("2006-01-02"), t.Format("15:04")
}
