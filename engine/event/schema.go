package event

import (
	"encoding/json"
	"fmt"
)

// schemaKey identifies a payload schema by (event_type, version).
type schemaKey struct {
	eventType string
	version   string
}

// Schema validates a decoded payload's required fields. Payloads are plain
// UTF-8 JSON; there is no wire framing beyond the envelope.
type Schema struct {
	RequiredFields []string
}

var registry = map[schemaKey]Schema{
	{"enrichment.requested", "v1"}: {RequiredFields: []string{
		"document_id", "project_name", "content_hash", "file_path", "document_type", "correlation_id",
	}},
	{"enrichment.completed", "v1"}: {RequiredFields: []string{
		"document_id", "correlation_id", "status",
	}},
	{"enrichment.failed", "v1"}: {RequiredFields: []string{
		"document_id", "correlation_id", "error_message",
	}},
	{"enrichment.dlq", "v1"}: {RequiredFields: []string{
		"document_id", "failure_reason", "failure_timestamp", "failure_count",
	}},
}

// Register adds or replaces the schema for (eventType, version).
func Register(eventType, version string, schema Schema) {
	registry[schemaKey{eventType, version}] = schema
}

// Validate checks that env.Payload contains every required field for its
// (EventType, Version) pair. An (event_type, version) pair with no
// registered schema is accepted unchecked — the registry enumerates known
// shapes, it does not gate delivery of new ones.
func Validate(env Envelope) error {
	schema, ok := registry[schemaKey{env.EventType, env.Version}]
	if !ok {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.Payload, &fields); err != nil {
		return fmt.Errorf("event: payload is not a JSON object: %w", err)
	}
	for _, f := range schema.RequiredFields {
		if _, ok := fields[f]; !ok {
			return fmt.Errorf("event: payload missing required field %q for %s/%s", f, env.EventType, env.Version)
		}
	}
	return nil
}
