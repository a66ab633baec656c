// Package problem builds RFC 9457 problem documents for rejected webhook
// deliveries.
package problem

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mattjoyce/hookguard/internal/provider"
)

// ContentType is the media type every Document is served with.
const ContentType = "application/problem+json; charset=utf-8"

// BaseURL prefixes every problem type URI.
const BaseURL = "https://hookguard.dev/errors"

// Document is a problem details object.
type Document struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Slug returns the last segment of the type URI, e.g. "missing-signature".
func (d Document) Slug() string {
	return strings.TrimPrefix(d.Type, BaseURL+"/")
}

func newDocument(slug, title string, status int, detail string) Document {
	return Document{
		Type:   BaseURL + "/" + slug,
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

func MissingSignature(detail string) Document {
	return newDocument("missing-signature", "Missing webhook signature", http.StatusUnauthorized, detail)
}

func InvalidSignature(detail string) Document {
	return newDocument("invalid-signature", "Webhook signature verification failed", http.StatusUnauthorized, detail)
}

func TimestampExpired(detail string) Document {
	return newDocument("timestamp-expired", "Webhook timestamp expired", http.StatusUnauthorized, detail)
}

// BodyReadFailed is returned when the request body could not be read at all.
func BodyReadFailed(detail string) Document {
	return newDocument("body-read-failed", "Failed to read request body", http.StatusBadRequest, detail)
}

// BodyTooLarge is returned when the body exceeds the configured limit.
func BodyTooLarge(detail string) Document {
	return newDocument("body-too-large", "Request body too large", http.StatusRequestEntityTooLarge, detail)
}

// FromReason maps a verification failure to its document. An empty or
// unrecognised reason is treated as an invalid signature.
func FromReason(reason provider.Reason, detail string) Document {
	switch reason {
	case provider.ReasonMissingSignature:
		return MissingSignature(detail)
	case provider.ReasonTimestampExpired:
		return TimestampExpired(detail)
	default:
		return InvalidSignature(detail)
	}
}

// Write sends doc with its status code.
func Write(w http.ResponseWriter, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(doc.Status)
	_ = json.NewEncoder(w).Encode(doc)
}
