package client

import (
	"context"
	"net/http"
	"net/url"
)

// EventsClient covers single-event routes.
type EventsClient struct {
	client *Client
}

// TransitionInput moves an event to ToStatus if its version still equals
// ExpectedVersion.
type TransitionInput struct {
	ExpectedVersion int     `json:"expectedVersion"`
	ToStatus        string  `json:"toStatus"`
	AssignedTo      *string `json:"assignedTo,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type TransitionResult struct {
	Event          Event  `json:"event"`
	PreviousStatus string `json:"previousStatus"`
	NewVersion     int    `json:"newVersion"`
}

func eventPath(eventID string) string {
	return "/events/" + url.PathEscape(eventID)
}

// Get returns the event with its allowed next statuses.
func (e *EventsClient) Get(ctx context.Context, eventID string) (*Event, error) {
	var out Event
	if err := e.client.get(ctx, eventPath(eventID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transition is not retried on conflict: a 409 means the caller must reload.
func (e *EventsClient) Transition(ctx context.Context, eventID string, in TransitionInput) (*TransitionResult, error) {
	var out TransitionResult
	if err := e.client.do(ctx, http.MethodPost, eventPath(eventID)+"/transitions", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Override moves the event's display date to date (YYYY-MM-DD).
func (e *EventsClient) Override(ctx context.Context, eventID, date string) (*Event, error) {
	var out Event
	body := struct {
		Date string `json:"date"`
	}{date}
	if err := e.client.do(ctx, http.MethodPut, eventPath(eventID)+"/override", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset drops any date override.
func (e *EventsClient) Reset(ctx context.Context, eventID string) (*Event, error) {
	var out Event
	if err := e.client.do(ctx, http.MethodDelete, eventPath(eventID)+"/override", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
