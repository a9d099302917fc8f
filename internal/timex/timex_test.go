package timex

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2024, 3, 1, 10, 30, 0, 123456789, loc)

	s := FormatInstant(in)
	assert.Equal(t, "2024-03-01T07:30:00.123456789Z", s)

	out, err := ParseInstant(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, time.UTC, out.Location())
}

func TestParseInstant_AcceptsRFC3339(t *testing.T) {
	out, err := ParseInstant("2024-03-01T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), out)

	_, err = ParseInstant("yesterday")
	assert.Error(t, err)
}

func TestFormatInstant_SortsLexicographically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(time.Second),
		base.Add(1500 * time.Millisecond),
		base.Add(time.Nanosecond),
		base,
	}
	var got []string
	for _, tm := range times {
		got = append(got, FormatInstant(tm))
	}
	sort.Strings(got)
	assert.Equal(t, []string{
		FormatInstant(base),
		FormatInstant(base.Add(time.Nanosecond)),
		FormatInstant(base.Add(time.Second)),
		FormatInstant(base.Add(1500 * time.Millisecond)),
	}, got)
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1m30s","b":2000000000}`), &cfg))
	assert.Equal(t, 90*time.Second, cfg.A.Duration)
	assert.Equal(t, 2*time.Second, cfg.B.Duration)

	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	b, err := json.Marshal(Duration{Duration: 3 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `"3s"`, string(b))
}
