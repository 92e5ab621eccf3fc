// Package gcsevent builds Cloud Storage CloudEvents shaped the way Eventarc
// delivers them. It is used by tests and the load generator; the function
// itself treats events as opaque.
package gcsevent

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
)

const (
	TypeFinalized       = "google.cloud.storage.object.v1.finalized"
	TypeDeleted         = "google.cloud.storage.object.v1.deleted"
	TypeArchived        = "google.cloud.storage.object.v1.archived"
	TypeMetadataUpdated = "google.cloud.storage.object.v1.metadataUpdated"
)

// Types lists every storage object event type, in a stable order.
var Types = []string{TypeFinalized, TypeDeleted, TypeArchived, TypeMetadataUpdated}

// Object describes the storage object an event is about.
type Object struct {
	Bucket      string
	Name        string
	ContentType string
	Size        int64
	Generation  int64
	Updated     time.Time
}

// objectData is the StorageObjectData payload. Int64 fields are strings on
// the wire, as in the Cloud Storage JSON API.
type objectData struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType,omitempty"`
	Size        string `json:"size"`
	TimeCreated string `json:"timeCreated"`
	Updated     string `json:"updated"`
}

// Source returns the CloudEvent source for a bucket.
func Source(bucket string) string {
	return "//storage.googleapis.com/projects/_/buckets/" + bucket
}

// New builds a finalized event for obj.
func New(obj Object) (event.Event, error) {
	return NewOfType(TypeFinalized, obj)
}

// NewOfType builds a storage event of the given type with a fresh id.
// Zero Generation and Updated are filled from the current time.
func NewOfType(eventType string, obj Object) (event.Event, error) {
	if obj.Bucket == "" || obj.Name == "" {
		return event.Event{}, fmt.Errorf("gcsevent: bucket and name are required")
	}

	updated := obj.Updated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	generation := obj.Generation
	if generation == 0 {
		generation = updated.UnixMicro()
	}

	e := event.New()
	e.SetID(uuid.NewString())
	e.SetSource(Source(obj.Bucket))
	e.SetType(eventType)
	e.SetSubject("objects/" + obj.Name)
	e.SetTime(updated)

	ts := updated.Format(time.RFC3339Nano)
	err := e.SetData(event.ApplicationJSON, objectData{
		Bucket:      obj.Bucket,
		Name:        obj.Name,
		Generation:  strconv.FormatInt(generation, 10),
		ContentType: obj.ContentType,
		Size:        strconv.FormatInt(obj.Size, 10),
		TimeCreated: ts,
		Updated:     ts,
	})
	if err != nil {
		return event.Event{}, fmt.Errorf("gcsevent: encode object data: %w", err)
	}

	if err := e.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("gcsevent: %w", err)
	}
	return e, nil
}
