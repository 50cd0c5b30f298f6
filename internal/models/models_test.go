package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCardType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0", CardTypeAmazon, true},
		{"1", CardTypeApple, true},
		{"2", CardTypeGoogle, true},
		{"AMAZON", CardTypeAmazon, true},
		{"GOOGLE", CardTypeGoogle, true},
		{"3", "", false},
		{"amazon", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, err := ParseCardType(tt.in)
		if tt.ok {
			assert.NoError(t, err, "input %q", tt.in)
			assert.Equal(t, tt.want, got)
		} else {
			assert.Error(t, err, "input %q", tt.in)
		}
	}
}

func TestParseUsageType(t *testing.T) {
	got, err := ParseUsageType("-1")
	assert.NoError(t, err)
	assert.Equal(t, UsageTypeUnset, got)

	got, err = ParseUsageType("2")
	assert.NoError(t, err)
	assert.Equal(t, UsageTypeAcceptance, got)

	got, err = ParseUsageType(UsageTypePhoneTopup)
	assert.NoError(t, err)
	assert.Equal(t, UsageTypePhoneTopup, got)

	_, err = ParseUsageType("5")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("3")
	assert.NoError(t, err)
	assert.Equal(t, StatusReserved, got)

	got, err = ParseStatus("USED")
	assert.NoError(t, err)
	assert.Equal(t, StatusUsed, got)

	_, err = ParseStatus("DONE")
	assert.Error(t, err)
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusUsed))
	assert.True(t, IsTerminalStatus(StatusError))
	assert.False(t, IsTerminalStatus(StatusUnused))
	assert.False(t, IsTerminalStatus(StatusReserved))
}
