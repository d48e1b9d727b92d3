// Package tracer is a small tracing facade so engine code can emit spans
// without importing OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: tests and deployments without a collector
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span; a non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
//
//	ctx, span := t.Start(ctx, tracer.SpanRightsAccess,
//	    tracer.String(tracer.AttrSubject, tracer.HashSubjectID(subjectID)),
//	)
//	defer func() { span.End(err) }()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashSubjectID returns a short SHA-256 prefix of a subject ID so traces can
// be correlated without carrying the identifier itself.
func HashSubjectID(subjectID string) string {
	if subjectID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(subjectID))
	return hex.EncodeToString(sum[:8])
}

// Span names.
const (
	SpanRightsAccess      = "rights.access"
	SpanRightsPortability = "rights.portability"
	SpanRightsErasure     = "rights.erasure"
	SpanGatewayGather     = "gateway.gather"
	SpanGatewayDelete     = "gateway.delete"
)

// Attribute keys.
const (
	AttrSubject          = "subject.hash"
	AttrRequestID        = "request.id"
	AttrSubsystems       = "gateway.subsystems"
	AttrFailedSubsystems = "gateway.failed_subsystems"
	AttrDecision         = "decision"
)

// Event names.
const (
	EventConsentChecked = "consent.checked"
	EventAuditEmitted   = "audit.emitted"
)
