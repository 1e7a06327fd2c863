package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Period 新闻检索的时间范围。
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Tone 文章语气。
type Tone string

const (
	ToneAcademic     Tone = "academic"
	ToneCasual       Tone = "casual"
	ToneEnthusiastic Tone = "enthusiastic"
)

// Length 目标篇幅，每档对应一个大致字数区间。
type Length string

const (
	LengthShort    Length = "short"
	LengthStandard Length = "standard"
	LengthDeep     Length = "deep"
)

var (
	Periods = []Period{PeriodDay, PeriodWeek, PeriodMonth}
	Tones   = []Tone{ToneAcademic, ToneCasual, ToneEnthusiastic}
	Lengths = []Length{LengthShort, LengthStandard, LengthDeep}
)

// Languages offered as translation targets.
var Languages = []string{"English", "Korean", "Japanese", "Chinese (Simplified)", "Spanish"}

var periodLabels = map[Period]string{
	PeriodDay:   "Past 24 Hours",
	PeriodWeek:  "Past Week",
	PeriodMonth: "Past Month",
}

var toneLabels = map[Tone]string{
	ToneAcademic:     "Professional Academic",
	ToneCasual:       "General Public/Casual",
	ToneEnthusiastic: "Marketing/Enthusiastic",
}

var lengthLabels = map[Length]string{
	LengthShort:    "Short (500 words)",
	LengthStandard: "Standard (500-1000 words)",
	LengthDeep:     "Deep Dive (1000-2000 words)",
}

func (p Period) Label() string { return periodLabels[p] }
func (t Tone) Label() string { return toneLabels[t] }
func (l Length) Label() string { return lengthLabels[l] }

// ParsePeriod accepts either the key ("day") or the label ("Past 24 Hours").
func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods {
		if matches(s, string(p), p.Label()) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

func ParseTone(s string) (Tone, error) {
	for _, t := range Tones {
		if matches(s, string(t), t.Label()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}

func ParseLength(s string) (Length, error) {
	for _, l := range Lengths {
		if matches(s, string(l), l.Label()) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown length %q", s)
}

func matches(s, key, label string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, key) || strings.EqualFold(s, label)
}

// Brief 首稿所需的全部参数。
type Brief struct {
	Keywords string `json:"keywords" validate:"required"`
	Period   Period `json:"period" validate:"required,oneof=day week month"`
	Tone     Tone   `json:"tone" validate:"required,oneof=academic casual enthusiastic"`
	Length   Length `json:"length" validate:"required,oneof=short standard deep"`
}

var validate = validator.New()

// ErrInvalidBrief marks a brief rejected before any gateway call.
var ErrInvalidBrief = errors.New("invalid brief")

// Validate checks that every field is populated and drawn from its closed set.
func (b Brief) Validate() error {
	b.Keywords = strings.TrimSpace(b.Keywords)
	if err := validate.Struct(b); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidBrief, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidBrief, strings.Join(msgs, "; "))
}
