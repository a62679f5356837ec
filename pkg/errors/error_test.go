package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeNoDataFound, "no bars for %s", "AAPL")
	suite.NotNil(err)
	suite.Equal(ErrCodeNoDataFound, err.Code)
	suite.Equal("no bars for AAPL", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeProviderFailed, "fetch failed", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeProviderFailed, err.Code)
	suite.Equal("fetch failed", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeProviderFailed, cause, "fetch failed for symbol: %s", "AAPL")
	suite.NotNil(err)
	suite.Equal(ErrCodeProviderFailed, err.Code)
	suite.Equal("fetch failed for symbol: AAPL", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNoDataFound, "no data found", cause)
	suite.Equal("[200] no data found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNoDataFound, "no data found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeStrategyNotSet, "strategy not set")
	suite.Equal(ErrCodeStrategyNotSet, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeNoDataFound, "no data found")
	err := fmt.Errorf("run failed: %w", cause)
	suite.Equal(ErrCodeNoDataFound, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeUnknown() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeProviderNotSet, "provider not set")
	suite.True(HasCode(err, ErrCodeProviderNotSet))
	suite.False(HasCode(err, ErrCodeStrategyNotSet))
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataError(21, 5, "AAPL", "need 21 bars, have 5")
	suite.Equal(21, err.Required)
	suite.Equal(5, err.Actual)
	suite.Equal("AAPL", err.Symbol)
	suite.Equal("need 21 bars, have 5", err.Error())
	suite.True(IsInsufficientDataError(err))
	suite.True(IsInsufficientDataError(fmt.Errorf("wrapped: %w", err)))
	suite.False(IsInsufficientDataError(errors.New("other")))
}
