// Package gateway implements ports.DataGateway by fanning requests out to the
// subsystems that hold subject data.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"consentd/internal/platform/tracer"
	"consentd/internal/rights/ports"
)

// Subsystem is one system of record holding subject data.
type Subsystem interface {
	Name() string
	// Export returns the subject's data, or nil when the subsystem holds none.
	Export(ctx context.Context, subjectID string) (any, error)
	// Delete removes the subject's data and returns the number of records
	// removed. Deleting a subject with no data is not an error.
	Delete(ctx context.Context, subjectID string) (int, error)
}

// Composite queries every registered subsystem concurrently.
type Composite struct {
	subsystems []Subsystem
	timeout    time.Duration
	tracer     tracer.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Composite)

// WithTimeout bounds each subsystem call. Default is 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Composite) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Composite) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Composite) {
		c.logger = l
	}
}

func NewComposite(subsystems []Subsystem, opts ...Option) *Composite {
	c := &Composite{
		subsystems: subsystems,
		timeout:    10 * time.Second,
		tracer:     tracer.NewNoop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gather exports from every subsystem. The first failure cancels the rest
// and fails the whole call.
func (c *Composite) Gather(ctx context.Context, subjectID string) (_ *ports.DataBundle, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanGatewayGather,
		tracer.String(tracer.AttrSubject, tracer.HashSubjectID(subjectID)),
		tracer.Attribute{Key: tracer.AttrSubsystems, Value: c.names()},
	)
	defer func() { span.End(err) }()

	var mu sync.Mutex
	sections := make(map[string]any, len(c.subsystems))
	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range c.subsystems {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()
			data, err := sub.Export(callCtx, subjectID)
			if err != nil {
				return fmt.Errorf("export from %s: %w", sub.Name(), err)
			}
			if data == nil {
				return nil
			}
			mu.Lock()
			sections[sub.Name()] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ports.DataBundle{
		SubjectID:   subjectID,
		CollectedAt: c.now(),
		Sections:    sections,
	}, nil
}

// Delete asks every subsystem to delete independently. One failure does not
// stop the others; each outcome lands in the report in registration order.
func (c *Composite) Delete(ctx context.Context, subjectID string) (_ *ports.DeleteReport, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanGatewayDelete,
		tracer.String(tracer.AttrSubject, tracer.HashSubjectID(subjectID)),
		tracer.Attribute{Key: tracer.AttrSubsystems, Value: c.names()},
	)
	defer func() { span.End(err) }()

	results := make([]ports.SubsystemResult, len(c.subsystems))
	var g errgroup.Group
	for i, sub := range c.subsystems {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			n, err := sub.Delete(callCtx, subjectID)
			res := ports.SubsystemResult{Subsystem: sub.Name(), Records: n, Deleted: err == nil}
			if err != nil {
				res.Error = err.Error()
				if c.logger != nil {
					c.logger.WarnContext(ctx, "subsystem delete failed",
						"subsystem", sub.Name(),
						"error", err,
					)
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := &ports.DeleteReport{Results: results}
	if failed := report.Failed(); len(failed) > 0 {
		span.SetAttributes(tracer.Attribute{Key: tracer.AttrFailedSubsystems, Value: failed})
	}
	return report, nil
}

func (c *Composite) names() []string {
	names := make([]string, len(c.subsystems))
	for i, sub := range c.subsystems {
		names[i] = sub.Name()
	}
	return names
}
