// Package queue defines the visitor.tracked message and its consumer.
package queue

import "github.com/iliyamo/visitor-tracker/internal/model"

// VisitorQueueName is the durable queue carrying VisitorTrackedEvent.
const VisitorQueueName = "visitor.tracked"

// VisitorTrackedEvent is published after a visitor has been persisted.  It
// carries the fields shown in the ingest log line so consumers do not need
// to read the store.
type VisitorTrackedEvent struct {
	VisitorID  string `json:"visitor_id"`
	IP         string `json:"ip"`
	DeviceType string `json:"device_type"`
	Browser    string `json:"browser"`
	Country    string `json:"country"`
	City       string `json:"city"`
	TrackedAt  string `json:"tracked_at"`
}

// NewVisitorTrackedEvent builds the event from a stamped visitor.  Absent
// fields are rendered as model.Undefined.
func NewVisitorTrackedEvent(v model.Visitor) VisitorTrackedEvent {
	return VisitorTrackedEvent{
		VisitorID:  v.Label(model.FieldID),
		IP:         v.Label(model.FieldIP),
		DeviceType: v.Label(model.FieldDeviceType),
		Browser:    v.Label(model.FieldBrowser),
		Country:    v.Label(model.FieldCountry),
		City:       v.Label(model.FieldCity),
		TrackedAt:  v.Label(model.FieldServerTimestamp),
	}
}
