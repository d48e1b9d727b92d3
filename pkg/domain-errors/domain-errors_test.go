package domainerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Every engine operation reports failures through these codes, so the
// "wrapped errors keep their code" and "errors.Is matches by code" invariants
// are what callers rely on to distinguish expected outcomes from faults.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeConsentNotFound, Message: "no consent for subject"}
		s.Equal("no consent for subject", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeConsentNotFound}
		s.Equal("consent_not_found", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("connection refused")
		err := &Error{Code: CodeGatewayFailure, Message: "gather failed", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeBreachNotFound}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := New(CodeInvalidTransition, "assessment already approved")
		err2 := New(CodeInvalidTransition, "breach already resolved")
		s.ErrorIs(err1, err2)
	})

	s.Run("different codes do not match", func() {
		s.NotErrorIs(New(CodeConsentRequired, "x"), New(CodeConsentNotFound, "x"))
	})

	s.Run("non-domain target does not match", func() {
		s.False((&Error{Code: CodeInternal}).Is(errors.New("internal_error")))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code", func() {
		inner := New(CodeConsentRequired, "dataPortability not granted")
		wrapped := Wrap(inner, CodeInternal, "portability request failed")
		s.True(HasCode(wrapped, CodeConsentRequired))
		s.Equal("portability request failed", wrapped.Error())
	})

	s.Run("assigns code to foreign errors and keeps the chain", func() {
		wrapped := Wrap(context.DeadlineExceeded, CodeGatewayFailure, "delete timed out")
		s.True(HasCode(wrapped, CodeGatewayFailure))
		s.ErrorIs(wrapped, context.DeadlineExceeded)
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeUnknownActivity, CodeOf(fmt.Errorf("ctx: %w", New(CodeUnknownActivity, "x"))))
	s.Equal(CodeInternal, CodeOf(errors.New("boom")))
}

func (s *DomainErrorsSuite) TestCategories() {
	s.Run("invalid argument refinements", func() {
		s.True(IsInvalidArgument(New(CodeInvalidArgument, "x")))
		s.True(IsInvalidArgument(New(CodeInvalidTimeline, "x")))
		s.True(IsInvalidArgument(New(CodeInvalidActivity, "x")))
		s.False(IsInvalidArgument(New(CodeConsentRequired, "x")))
		s.False(IsInvalidArgument(nil))
	})

	s.Run("not found variants", func() {
		for _, code := range []Code{CodeConsentNotFound, CodeUnknownActivity, CodeAssessmentNotFound, CodeBreachNotFound} {
			s.True(IsNotFound(New(code, "x")), code)
		}
		s.False(IsNotFound(New(CodeGatewayFailure, "x")))
		s.False(IsNotFound(nil))
	})
}
