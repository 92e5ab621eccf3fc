package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/segmentio/kafka-go"
)

// Header names from the CloudEvents Kafka protocol binding.
const (
	HeaderContentType = "content-type"
	HeaderPrefix      = "ce_"
)

var ErrMalformedMessage = errors.New("malformed cloudevent message")

// EncodeMessage renders e in structured mode, keyed by the event id.
func EncodeMessage(e event.Event) (kafka.Message, error) {
	if e.Context == nil {
		return kafka.Message{}, fmt.Errorf("%w: missing event context", ErrMalformedMessage)
	}

	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", e.ID(), err)
	}

	return kafka.Message{
		Key:   []byte(e.ID()),
		Value: b,
		Headers: []kafka.Header{
			{Key: HeaderContentType, Value: []byte(event.ApplicationCloudEventsJSON)},
		},
	}, nil
}

// DecodeMessage reads a CloudEvent from m in either structured or binary
// mode, chosen by the content-type header.
func DecodeMessage(m kafka.Message) (event.Event, error) {
	contentType := headerValue(m.Headers, HeaderContentType)

	var (
		e   event.Event
		err error
	)
	if isStructured(contentType) {
		e, err = decodeStructured(m.Value)
	} else {
		e, err = decodeBinary(m.Headers, contentType, m.Value)
	}
	if err != nil {
		return event.Event{}, err
	}

	if err := e.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return e, nil
}

func decodeStructured(value []byte) (event.Event, error) {
	e := event.New()
	if err := json.Unmarshal(value, &e); err != nil {
		return event.Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return e, nil
}

func decodeBinary(headers []kafka.Header, contentType string, value []byte) (event.Event, error) {
	specVersion := headerValue(headers, HeaderPrefix+"specversion")
	if specVersion == "" {
		return event.Event{}, fmt.Errorf("%w: no %sspecversion header", ErrMalformedMessage, HeaderPrefix)
	}

	e := event.New(specVersion)
	if e.Context == nil {
		return event.Event{}, fmt.Errorf("%w: unsupported spec version %q", ErrMalformedMessage, specVersion)
	}

	for _, h := range headers {
		name, ok := strings.CutPrefix(strings.ToLower(h.Key), HeaderPrefix)
		if !ok {
			continue
		}

		v := string(h.Value)
		switch name {
		case "specversion":
		case "id":
			e.SetID(v)
		case "source":
			e.SetSource(v)
		case "type":
			e.SetType(v)
		case "subject":
			e.SetSubject(v)
		case "dataschema":
			e.SetDataSchema(v)
		case "time":
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return event.Event{}, fmt.Errorf("%w: %stime: %v", ErrMalformedMessage, HeaderPrefix, err)
			}
			e.SetTime(t)
		default:
			e.SetExtension(name, v)
		}
	}

	if contentType != "" {
		e.SetDataContentType(contentType)
	}
	if len(value) > 0 {
		e.DataEncoded = value
	}
	return e, nil
}

func isStructured(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == event.ApplicationCloudEventsJSON
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}
