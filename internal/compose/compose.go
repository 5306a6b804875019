package compose

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"concierge-backend/internal/model"
)

// golang.org/x/text: locale-aware title casing ("italian" -> "Italian").
var titleCaser = cases.Title(language.English)

// Message is a delivery-ready subject and plain-text body.
type Message struct {
	Subject string
	Body    string
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Compose renders a request plus its resolved records into an email.
// It is a pure function of its inputs and never fails: a date or time that
// does not parse is emitted verbatim instead.
func Compose(req *model.Request, results []model.Restaurant) Message {
	title := titleCaser.String(strings.ToLower(req.Cuisine))

	var intro strings.Builder
	intro.WriteString("Here are my ")
	intro.WriteString(title)
	intro.WriteString(" suggestions")

	if req.NumPeople > 0 {
		fmt.Fprintf(&intro, " for %d people", int(req.NumPeople))
	}

	var when []string
	if req.DiningDate != "" {
		when = append(when, formatDate(req.DiningDate))
	}
	if req.DiningTime != "" {
		when = append(when, "at "+formatTime(req.DiningTime))
	}
	if len(when) > 0 {
		intro.WriteString(", for ")
		intro.WriteString(strings.Join(when, " "))
	}
	intro.WriteString(":")

	lines := make([]string, 0, len(results)+2)
	lines = append(lines, intro.String())
	for i, r := range results {
		piece := fmt.Sprintf("%d. %s", i+1, r.Name)
		if r.Address != "" {
			piece += ", located at " + r.Address
		}
		lines = append(lines, piece)
	}
	lines = append(lines, "\nEnjoy your meal!")

	return Message{
		Subject: title + " suggestions",
		Body:    strings.Join(lines, "\n"),
	}
}

// formatDate renders an ISO date as e.g. "Thursday, October 9, 2025",
// falling back to the raw string on parse failure.
func formatDate(raw string) string {
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return raw
	}
	return d.Format("Monday, January 2, 2006")
}

// formatTime renders 24-hour "HH:MM" as e.g. "7 pm", falling back to the
// raw string on parse failure.
func formatTime(raw string) string {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format("3 pm")
}
