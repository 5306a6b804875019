package model

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// go-playground/validator/v10: Struct validator for dequeued request payloads.
var validate = validator.New()

// Request is the suggestion request enqueued by the dialog collector.
// Cuisine and Email are mandatory; everything else is best-effort context
// that only affects how the email is worded.
type Request struct {
	ID         string  `json:"request_id,omitempty"`
	Location   string  `json:"location,omitempty"`
	Cuisine    string  `json:"cuisine" validate:"required"`
	DiningDate string  `json:"dining_date,omitempty"`
	DiningTime string  `json:"dining_time,omitempty"`
	NumPeople  FlexInt `json:"num_people,omitempty"`
	Email      string  `json:"email" validate:"required"`
}

// FlexInt accepts a JSON number, a numeric string, or null. The collector
// historically sent num_people as a string, so both shapes appear in the
// queue. A non-numeric value is treated as absent rather than rejected.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = 0
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	v, err := strconv.Atoi(s)
	if err != nil {
		*n = 0
		return nil
	}
	*n = FlexInt(v)
	return nil
}

// MalformedError marks a payload that can never succeed and must be
// discarded instead of retried.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed request: " + e.Reason
}

// IsMalformed reports whether err (or anything it wraps) is a MalformedError.
func IsMalformed(err error) bool {
	var m *MalformedError
	return errors.As(err, &m)
}

// ParseRequest is the single parse-and-validate step for a dequeued payload.
// It normalizes the cuisine to lower case, trims whitespace, and returns a
// MalformedError when the payload is unusable. Date validity against "today"
// is the collector's job and is not re-checked here.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &MalformedError{Reason: "invalid JSON: " + err.Error()}
	}

	req.Cuisine = strings.ToLower(strings.TrimSpace(req.Cuisine))
	req.Email = strings.TrimSpace(req.Email)
	req.Location = strings.TrimSpace(req.Location)
	req.DiningDate = strings.TrimSpace(req.DiningDate)
	req.DiningTime = strings.TrimSpace(req.DiningTime)

	if err := validate.Struct(&req); err != nil {
		return nil, &MalformedError{Reason: err.Error()}
	}
	return &req, nil
}
