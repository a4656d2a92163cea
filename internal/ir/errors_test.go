package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	e := &Error{Code: CodeProtocolViolation, Op: "WriteEndArray", State: "DictStarted", Message: "unexpected call"}
	assert.Equal(t, "PROTOCOL_VIOLATION: WriteEndArray in state DictStarted: unexpected call", e.Error())

	e = OpErrorf(CodeFormatError, "Parse", "length %d", 39)
	assert.Equal(t, "FORMAT_ERROR: Parse: length 39", e.Error())

	e = Errorf(CodeReadOnly, "dataset %s is read-only", "Common")
	assert.Equal(t, "READ_ONLY: dataset Common is read-only", e.Error())
}

func TestIs_Wrapped(t *testing.T) {
	base := Errorf(CodeInvalidKeyToken, "empty token")
	wrapped := fmt.Errorf("format key: %w", base)

	assert.True(t, Is(wrapped, CodeInvalidKeyToken))
	assert.False(t, Is(wrapped, CodeFormatError))
	assert.False(t, Is(errors.New("plain"), CodeFormatError))
	assert.False(t, Is(nil, CodeFormatError))

	assert.Equal(t, CodeInvalidKeyToken, CodeOf(wrapped))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
