package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent(""))
	assert.NoError(t, ValidateMessageContent("how much did I spend?"))
	assert.Error(t, ValidateMessageContent(strings.Repeat("x", 100001)))
	assert.Error(t, ValidateMessageContent("\xff\xfe"))
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("u1"))
	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID(strings.Repeat("u", 65)))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID(""))
	assert.NoError(t, ValidateSessionID("s1"))
	assert.Error(t, ValidateSessionID(strings.Repeat("s", 65)))
}
