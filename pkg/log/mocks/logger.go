// Package mocks provides testify mocks for pkg/log interfaces.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/boxchat/boxchat-go/pkg/log"
)

// NewMockLogger creates a MockLogger whose expectations are asserted when
// the test ends.
func NewMockLogger(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLogger {
	m := &MockLogger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockLogger is a mock log.Logger.
type MockLogger struct {
	mock.Mock
}

var _ log.Logger = (*MockLogger)(nil)

// MockLogger_Expecter records typed expectations.
type MockLogger_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expectation builder.
func (_m *MockLogger) EXPECT() *MockLogger_Expecter {
	return &MockLogger_Expecter{mock: &_m.Mock}
}

// Log records the call.
func (_m *MockLogger) Log(event log.Event) {
	_m.Called(event)
}

// MockLogger_Log_Call is an expectation on Log.
type MockLogger_Log_Call struct {
	*mock.Call
}

// Log expects a call with event, which may be a matcher such as
// mock.Anything or mock.MatchedBy.
func (_e *MockLogger_Expecter) Log(event interface{}) *MockLogger_Log_Call {
	return &MockLogger_Log_Call{Call: _e.mock.On("Log", event)}
}

// Run invokes run with the logged event.
func (_c *MockLogger_Log_Call) Run(run func(event log.Event)) *MockLogger_Log_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(log.Event))
	})
	return _c
}

// Return completes the expectation.
func (_c *MockLogger_Log_Call) Return() *MockLogger_Log_Call {
	_c.Call.Return()
	return _c
}
