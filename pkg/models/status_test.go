package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceStatus_String(t *testing.T) {
	tests := []struct {
		status ResourceStatus
		want   string
	}{
		{ResourceStatusUnset, "unset"},
		{ResourceStatusPending, "pending"},
		{ResourceStatusSuccess, "success"},
		{ResourceStatusFailure, "failure"},
		{ResourceStatusSkipped, "skipped"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestResourceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status ResourceStatus
		want   bool
	}{
		{ResourceStatusPending, true},
		{ResourceStatusSuccess, true},
		{ResourceStatusFailure, true},
		{ResourceStatusSkipped, true},
		{ResourceStatusUnset, false},
		{ResourceStatus("arbitrary"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.IsValid(), "ResourceStatus(%q).IsValid()", string(tt.status))
	}
}

func TestResourceStatus_IsTerminal(t *testing.T) {
	assert.False(t, ResourceStatusPending.IsTerminal())
	assert.True(t, ResourceStatusSuccess.IsTerminal())
	assert.True(t, ResourceStatusFailure.IsTerminal())
	assert.True(t, ResourceStatusSkipped.IsTerminal())
}

func TestCrawlState_IsFailure(t *testing.T) {
	assert.True(t, StateInvalidURL.IsFailure())
	assert.True(t, StateFetchFailed.IsFailure())
	assert.False(t, StateDone.IsFailure())
	assert.False(t, StateDownloading.IsFailure())
}
