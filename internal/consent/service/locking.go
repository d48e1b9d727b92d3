package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	pkgerrors "consentd/pkg/domain-errors"
)

// Subject lock contention metrics.
var (
	subjectLockWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consentd_subject_lock_wait_seconds",
		Help:    "Time spent waiting to acquire a per-subject lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"mode"})
	subjectLockAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_subject_lock_acquisitions_total",
		Help: "Total number of per-subject lock acquisitions",
	}, []string{"mode"})
)

// lockSubject takes the exclusive lock for one subject. Writes to different
// subjects never wait on each other.
func (s *Service) lockSubject(ctx context.Context, subjectID string) (func(), error) {
	start := time.Now()
	unlock, err := s.locks.Lock(ctx, subjectID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to acquire subject lock")
	}
	subjectLockWaitDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())
	subjectLockAcquisitions.WithLabelValues("write").Inc()
	return unlock, nil
}

// rlockSubject takes the shared lock for one subject.
func (s *Service) rlockSubject(ctx context.Context, subjectID string) (func(), error) {
	start := time.Now()
	unlock, err := s.locks.RLock(ctx, subjectID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to acquire subject lock")
	}
	subjectLockWaitDuration.WithLabelValues("read").Observe(time.Since(start).Seconds())
	subjectLockAcquisitions.WithLabelValues("read").Inc()
	return unlock, nil
}
