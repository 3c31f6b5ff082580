package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareRain(t *testing.T) {
	records := []Annotated{
		{Record: rec(0, 3, 0, 0), Efficiency: 30000},
		{Record: rec(1, 3, 0, 0), Efficiency: 32000},
		{Record: rec(2, 3, 0, 4), Efficiency: 27900},
	}

	c := CompareRain(records)

	assert.True(t, c.Comparable)
	assert.Equal(t, 2, c.DryCount)
	assert.Equal(t, 1, c.WetCount)
	assert.InDelta(t, 31000.0, c.DryMean, 1e-9)
	assert.InDelta(t, 27900.0, c.WetMean, 1e-9)
	assert.InDelta(t, 10.0, c.ReductionPct, 1e-9)
}

func TestCompareRain_MissingSide(t *testing.T) {
	c := CompareRain([]Annotated{{Record: rec(0, 3, 0, 0), Efficiency: 30000}})

	assert.False(t, c.Comparable)
	assert.Equal(t, 0, c.WetCount)
	assert.Zero(t, c.ReductionPct)
}
