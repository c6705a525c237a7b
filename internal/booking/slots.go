package booking

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	firstSlotMinutes = 9 * 60
	lastSlotMinutes  = 18 * 60
	slotStepMinutes  = 30
)

// Slot is one selectable appointment time.
type Slot struct {
	Time      string `json:"time"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// StandardSlots returns 09:00 through 18:00 in half-hour steps.
func StandardSlots() []string {
	slots := make([]string, 0, (lastSlotMinutes-firstSlotMinutes)/slotStepMinutes+1)
	for m := firstSlotMinutes; m <= lastSlotMinutes; m += slotStepMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

func isStandardSlot(slot string) bool {
	for _, s := range StandardSlots() {
		if s == slot {
			return true
		}
	}
	return false
}

// TimeLabel renders "14:30" as "2:30 PM". Unparseable input is returned as-is.
func TimeLabel(slot string) string {
	t, err := time.Parse(timeLayout, slot)
	if err != nil {
		return slot
	}
	return t.Format("3:04 PM")
}

// DateLabel renders "2026-01-02" as "Friday, January 2, 2026".
func DateLabel(date string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Monday, January 2, 2006")
}

// DateTimeLabel combines DateLabel and TimeLabel.
func DateTimeLabel(date, slot string) string {
	switch {
	case date == "":
		return ""
	case slot == "":
		return DateLabel(date)
	}
	return DateLabel(date) + " at " + TimeLabel(slot)
}

// NormalizeTime trims database times such as "09:00:00" to "09:00".
func NormalizeTime(v string) string {
	for _, layout := range []string{"15:04:05", "15:04:05.999999", timeLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(timeLayout)
		}
	}
	return v
}

// MinDate is the earliest bookable date relative to now: tomorrow.
func MinDate(now time.Time) string {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Format(dateLayout)
}

func buildSlots(booked []string) []Slot {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	standard := StandardSlots()
	out := make([]Slot, 0, len(standard))
	for _, s := range standard {
		_, isTaken := taken[s]
		out = append(out, Slot{Time: s, Label: TimeLabel(s), Available: !isTaken})
	}
	return out
}
