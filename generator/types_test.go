package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	p, err := ParsePeriod("Past 24 Hours")
	require.NoError(t, err)
	assert.Equal(t, PeriodDay, p)

	p, err = ParsePeriod("WEEK")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	tone, err := ParseTone("Marketing/Enthusiastic")
	require.NoError(t, err)
	assert.Equal(t, ToneEnthusiastic, tone)

	l, err := ParseLength(" deep ")
	require.NoError(t, err)
	assert.Equal(t, LengthDeep, l)

	_, err = ParsePeriod("Past Year")
	assert.Error(t, err)
	_, err = ParseTone("sarcastic")
	assert.Error(t, err)
	_, err = ParseLength("")
	assert.Error(t, err)
}

func TestBriefValidate(t *testing.T) {
	assert.NoError(t, academicBrief.Validate())

	err := Brief{Keywords: "  ", Period: "year", Tone: ToneCasual, Length: LengthShort}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBrief)
	assert.Contains(t, err.Error(), "keywords is required")
	assert.Contains(t, err.Error(), "period must be one of: day week month")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Past Month", PeriodMonth.Label())
	assert.Equal(t, "General Public/Casual", ToneCasual.Label())
	assert.Equal(t, "Short (500 words)", LengthShort.Label())
}
