// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package events carries user change notifications between instances.
//
// The system-of-record (or any instance that writes user tags) publishes a
// TagsUpdated event on TopicTagsUpdated. Consumers rebuild the user's
// similarity and complement lists, drop the cached activity score and the
// user's cached result pages, and patch the user snapshot.
//
// Transport is watermill: NATS JetStream through watermill-nats when a URL
// is configured, the in-process gochannel otherwise.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TopicTagsUpdated is the subject of tag change events.
const TopicTagsUpdated = "users.tags.updated"

// ErrInvalidEvent marks a payload that can never be processed.
var ErrInvalidEvent = errors.New("invalid event")

// TagsUpdated announces that a user's tag set changed.
type TagsUpdated struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	Tags       []string  `json:"tags,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate checks the required fields.
func (e *TagsUpdated) Validate() error {
	if e.UserID <= 0 {
		return fmt.Errorf("%w: user_id must be positive", ErrInvalidEvent)
	}
	return nil
}

// NewTagsUpdated builds an event with a fresh id.
func NewTagsUpdated(userID int64, tags []string, now time.Time) *TagsUpdated {
	return &TagsUpdated{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Tags:       tags,
		OccurredAt: now.UTC(),
	}
}

// Encode wraps the event in a watermill message keyed by its id.
func Encode(e *TagsUpdated) (*message.Message, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set("user_id", fmt.Sprintf("%d", e.UserID))
	return msg, nil
}

// Decode parses and validates a message payload.
func Decode(msg *message.Message) (*TagsUpdated, error) {
	var e TagsUpdated
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
