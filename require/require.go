package require

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert"
)

// thin wrappers over github.com/alecthomas/assert, which already stops
// the test on the first failed assertion.
// only the ones used in kvlog tests

// Len asserts that the specified object has specific length.
//
//	require.Len(t, keys, 3)
func Len(t testing.TB, object interface{}, length int, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Len(t, object, length, msgAndArgs...)
}

// NoError asserts that a function returned no error (i.e. `nil`).
//
//	err := s.Set("k", "v")
//	require.NoError(t, err)
func NoError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NoError(t, err, msgAndArgs...)
}

// Error asserts that a function returned an error
func Error(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Error(t, err, msgAndArgs...)
}

// formatMsg formats msgAndArgs the way assert does: a single value is
// printed as is, otherwise the first value is a format string
func formatMsg(msgAndArgs ...interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if len(msgAndArgs) == 1 {
		return fmt.Sprint(msgAndArgs[0])
	}
	format, ok := msgAndArgs[0].(string)
	if !ok {
		return fmt.Sprintf("%v", msgAndArgs)
	}
	return fmt.Sprintf(format, msgAndArgs[1:]...)
}

// ErrorIs asserts that errors.Is(err, target) is true
//
//	_, err := kvstore.Open(path)
//	require.ErrorIs(t, err, kvstore.ErrCorruptRecord)
func ErrorIs(t testing.TB, err error, target error, msgAndArgs ...interface{}) {
	t.Helper()
	if errors.Is(err, target) {
		return
	}
	msg := formatMsg(msgAndArgs...)
	if msg != "" {
		msg = "\n" + msg
	}
	t.Fatalf("error chain of '%v' doesn't contain '%v'%s", err, target, msg)
}

// Equal asserts that two objects are equal.
//
//	require.Equal(t, "val1.4", v)
func Equal(t testing.TB, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected, actual, msgAndArgs...)
}

// NotEqual asserts that the specified values are NOT equal.
func NotEqual(t testing.TB, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotEqual(t, expected, actual, msgAndArgs...)
}

// Nil asserts that the specified object is nil.
func Nil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Nil(t, object, msgAndArgs...)
}

// NotNil asserts that the specified object is not nil.
func NotNil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotNil(t, object, msgAndArgs...)
}

// True asserts that the specified value is true.
//
//	require.True(t, ok)
func True(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, value, msgAndArgs...)
}

// False asserts that the specified value is false.
//
//	require.False(t, ok)
func False(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	assert.False(t, value, msgAndArgs...)
}
