package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{15000, "15,000"},
		{1234567, "1,234,567"},
		{-2500, "-2,500"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBalance(tt.in))
	}
}

func TestFormatSignedBalance(t *testing.T) {
	assert.Equal(t, "+2,500", FormatSignedBalance(2500))
	assert.Equal(t, "-500", FormatSignedBalance(-500))
	assert.Equal(t, "0", FormatSignedBalance(0))
}

func TestFormatDelay(t *testing.T) {
	assert.Equal(t, "1 minute", FormatDelay(time.Minute))
	assert.Equal(t, "5 minutes", FormatDelay(5*time.Minute))
	assert.Equal(t, "30 seconds", FormatDelay(30*time.Second))
	assert.Equal(t, "1m30s", FormatDelay(90*time.Second))
	assert.Equal(t, "a moment", FormatDelay(0))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;bob&lt;/b&gt;", Escape("<b>bob</b>"))
}
