package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// MediaWikiTimestamp is the compact timestamp layout used in log parameters.
const MediaWikiTimestamp = "20060102150405"

// ChangeEvent is a "file changed" notification taken from the queue.
// It is consumed exactly once per dequeue.
type ChangeEvent struct {
	// Title is the file page title, e.g. "File:Example.jpg".
	Title string `json:"title"`

	// Timestamp is the event time in unix seconds.
	Timestamp int64 `json:"timestamp"`

	// LogParams carries the upload log parameters.
	LogParams LogParams `json:"log_params"`
}

// LogParams holds the optional upload log parameters of a change event.
type LogParams struct {
	// ImgTimestamp is the uploaded revision's timestamp in MediaWikiTimestamp layout.
	ImgTimestamp string `json:"img_timestamp,omitempty"`
}

// UnmarshalJSON accepts an empty JSON array, which is how the event stream
// encodes an empty parameter set.
func (p *LogParams) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*p = LogParams{}
		return nil
	}
	type plain LogParams
	var v plain
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*p = LogParams(v)
	return nil
}

// ParseChangeEvent decodes a queue payload.
func ParseChangeEvent(data []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("%w: change event: %w", ErrInvalidInput, err)
	}
	if ev.Title == "" {
		return ChangeEvent{}, fmt.Errorf("%w: change event without title", ErrInvalidInput)
	}
	return ev, nil
}

// ImageTime returns the uploaded revision's timestamp from the log parameters.
func (e ChangeEvent) ImageTime() (time.Time, bool) {
	if e.LogParams.ImgTimestamp == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(MediaWikiTimestamp, e.LogParams.ImgTimestamp, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EventTime returns the event timestamp.
func (e ChangeEvent) EventTime() (time.Time, bool) {
	if e.Timestamp <= 0 {
		return time.Time{}, false
	}
	return time.Unix(e.Timestamp, 0).UTC(), true
}
