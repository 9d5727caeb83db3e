package rail

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want ClockMinutes
	}{
		{"00:00", 0},
		{"08:15", 8*60 + 15},
		{"15:30", 15*60 + 30},
		{"23:59", 23*60 + 59},
		{"", NoTime},
		{"  ", NoTime},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseClockRejectsMalformed(t *testing.T) {
	for _, in := range []string{"25:00", "12:60", "12", "12:3x", "ab:cd", "-1:00"} {
		_, err := ParseClock(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, errors.Is(err, ErrBadClock), "input %q", in)
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "08:15", ClockMinutes(8*60+15).String())
	assert.Equal(t, "00:05", ClockMinutes(5).String())
	assert.Equal(t, "", NoTime.String())
}

func TestClockAddWrapsAtMidnight(t *testing.T) {
	base := ClockMinutes(23*60 + 30)
	assert.Equal(t, ClockMinutes(30), base.Add(60))
	assert.Equal(t, base, base.Add(0))
	assert.Equal(t, NoTime, NoTime.Add(10))
}
