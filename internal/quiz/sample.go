package quiz

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"vmxio.com/itpec-quiz/internal/catalog"
)

const (
	DefaultCount = 20
	MinCount     = 1
	MaxCount     = 100
)

// Sitting filters questions by the session tag of grouped papers.
const (
	SittingMorning   = "morning"
	SittingAfternoon = "afternoon"
	SittingBoth      = "both"
)

// ClampCount bounds a requested question count to [MinCount, MaxCount].
func ClampCount(n int) int {
	if n < MinCount {
		return MinCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// ParseCount reads a count from a query or form value. Missing or
// non-numeric values give DefaultCount.
func ParseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultCount
	}
	return ClampCount(n)
}

func NormalizeSitting(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SittingMorning:
		return SittingMorning
	case SittingAfternoon:
		return SittingAfternoon
	default:
		return SittingBoth
	}
}

// FilterSitting keeps questions tagged with sitting. Untagged questions are
// dropped by a morning or afternoon filter.
func FilterSitting(qs []catalog.Question, sitting string) []catalog.Question {
	sitting = NormalizeSitting(sitting)
	if sitting == SittingBoth {
		return qs
	}
	out := make([]catalog.Question, 0, len(qs))
	for _, q := range qs {
		if strings.EqualFold(q.Session, sitting) {
			out = append(out, q)
		}
	}
	return out
}

func newRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Sample draws min(n, len(qs)) questions without replacement using a
// Fisher-Yates shuffle. qs is not modified.
func Sample(qs []catalog.Question, n int, seed *int64) []catalog.Question {
	r := newRand(seed)
	out := append([]catalog.Question(nil), qs...)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	if n < 0 {
		n = 0
	}
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCode returns a session code: the base-36 millisecond timestamp followed
// by six random base-36 characters.
func NewCode(now time.Time) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	for i := 0; i < 6; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}
