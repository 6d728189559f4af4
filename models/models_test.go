package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationKey(t *testing.T) {
	assert.Equal(t, "41.8781,-87.6298", LocationKey(41.8781, -87.6298))
	// Nearby coordinates collapse onto the same key at 4 decimal places.
	assert.Equal(t, LocationKey(41.87812, -87.62979), LocationKey(41.8781, -87.6298))
	assert.Equal(t, "0.0000,0.0000", LocationKey(0, 0))
}

func TestWithDisplayName(t *testing.T) {
	original := &NormalizedObservation{LocationKey: "a", DisplayName: "Original"}

	named := original.WithDisplayName("Renamed")
	assert.Equal(t, "Renamed", named.DisplayName)
	assert.Equal(t, "Original", original.DisplayName, "source is untouched")
	assert.NotSame(t, original, named)

	// Empty name keeps the existing one.
	kept := original.WithDisplayName("")
	assert.Equal(t, "Original", kept.DisplayName)

	var nilObs *NormalizedObservation
	assert.Nil(t, nilObs.WithDisplayName("x"))
}

func TestConditionCodeIsValid(t *testing.T) {
	assert.True(t, ConditionClearDay.IsValid())
	assert.True(t, ConditionThunderstorm.IsValid())
	assert.False(t, ConditionCode("tornado").IsValid())
	assert.False(t, ConditionCode("").IsValid())
}
