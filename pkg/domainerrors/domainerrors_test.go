package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: these are the error primitives used at every trust boundary
// of the service. Unit tests ensure invariants like "wrapped domain errors
// preserve original code" and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestNew() {
	err := New(CodeNotReady, "qr code not issued yet")

	var domainErr *Error
	s.Require().True(errors.As(err, &domainErr))
	s.Equal(CodeNotReady, domainErr.Code)
	s.Equal("qr code not issued yet", err.Error())
}

func (s *DomainErrorsSuite) TestErrorFallsBackToCode() {
	err := &Error{Code: CodeExpired}
	s.Equal("expired", err.Error())
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	a := New(CodeNotActive, "no live connection")
	b := New(CodeNotActive, "different message")

	s.True(errors.Is(a, b))
	s.False(errors.Is(a, New(CodeNotFound, "x")))
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves code of wrapped domain error", func() {
		inner := New(CodeExpired, "qr expired")
		wrapped := Wrap(inner, CodeInternal, "qr lookup failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeExpired, domainErr.Code)
		s.Equal("qr lookup failed", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("redis timeout")
		wrapped := Wrap(original, CodeInternal, "store read failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeInternal, domainErr.Code)
	})

	s.Run("wrapped error is accessible via Unwrap", func() {
		original := errors.New("root cause")
		wrapped := Wrap(original, CodeInternal, "store read failed")
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestValidationCarriesFields() {
	err := Validation("invalid session config", map[string]string{
		"maxRetries": "must be >= 0",
	})

	var domainErr *Error
	s.Require().True(errors.As(err, &domainErr))
	s.Equal(CodeValidation, domainErr.Code)
	s.Equal("must be >= 0", domainErr.Fields["maxRetries"])
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.Run("returns true for matching code", func() {
		s.True(HasCode(New(CodeNotFound, "not found"), CodeNotFound))
	})

	s.Run("returns false for non-matching code", func() {
		s.False(HasCode(New(CodeNotFound, "not found"), CodeInternal))
	})

	s.Run("returns false for non-domain error", func() {
		s.False(HasCode(errors.New("regular error"), CodeNotFound))
	})

	s.Run("finds code through error chain", func() {
		inner := New(CodeNotReady, "original")
		wrapped := Wrap(inner, CodeInternal, "wrapped")
		s.True(HasCode(wrapped, CodeNotReady))
	})

	s.Run("returns false for nil error", func() {
		s.False(HasCode(nil, CodeNotFound))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeExpired, CodeOf(New(CodeExpired, "x")))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
}
