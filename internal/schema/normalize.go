package schema

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tidwall/gjson"

	"voice-notes-service/internal/models"
)

var (
	localPhone = regexp.MustCompile(`^\d{9}$`)
	intlPhone  = regexp.MustCompile(`^\+\d{8,15}$`)
	dniPattern = regexp.MustCompile(`^\d{8}[A-Z]$`)
)

const maxAge = 120

var birthDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"02-01-2006",
}

// ParseCategory returns the matching category or CategoryOther.
func ParseCategory(s string) models.Category {
	return matchEnum(s, models.Categories, models.CategoryOther)
}

// ParseSentiment returns the matching sentiment or SentimentNeutral.
func ParseSentiment(s string) models.Sentiment {
	return matchEnum(s, models.Sentiments, models.SentimentNeutral)
}

// ParseTopic returns the matching topic or TopicOther.
func ParseTopic(s string) models.Topic {
	return matchEnum(s, models.Topics, models.TopicOther)
}

// ParsePriority returns the matching priority or PriorityMedium.
func ParsePriority(s string) models.Priority {
	return matchEnum(s, models.Priorities, models.PriorityMedium)
}

// ParseLeadStatus returns the matching status or LeadNew.
func ParseLeadStatus(s string) models.LeadStatus {
	return matchEnum(s, models.LeadStatuses, models.LeadNew)
}

// matchEnum compares case-insensitively and returns the canonical spelling.
func matchEnum[T ~string](s string, values []T, def T) T {
	s = strings.TrimSpace(s)
	for _, v := range values {
		if strings.EqualFold(s, string(v)) {
			return v
		}
	}
	return def
}

// NormalizePhone strips everything but digits and a leading '+'. The result
// is kept only if it is a 9-digit national number or a '+' international
// number; otherwise it returns "".
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	plus := strings.HasPrefix(s, "+")
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if plus {
		digits = "+" + digits
	}
	if localPhone.MatchString(digits) || intlPhone.MatchString(digits) {
		return digits
	}
	return ""
}

// NormalizeDNI uppercases and removes whitespace. The result is kept only if
// it is 8 digits followed by a letter; otherwise it returns "".
func NormalizeDNI(raw string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)
	if dniPattern.MatchString(s) {
		return s
	}
	return ""
}

// NormalizeAge coerces a JSON number or numeric string to an age in [0,120].
func NormalizeAge(v gjson.Result) *int {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	age := int(f)
	if age < 0 || age > maxAge {
		return nil
	}
	return &age
}

// AgeFromBirthDate computes completed years at now. It returns nil when the
// date does not parse, lies in the future, or yields an age above 120.
func AgeFromBirthDate(raw string, now time.Time) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range birthDateLayouts {
		birth, err := time.ParseInLocation(layout, raw, now.Location())
		if err != nil {
			continue
		}
		if birth.After(now) {
			return nil
		}
		age := now.Year() - birth.Year()
		if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
			age--
		}
		if age > maxAge {
			return nil
		}
		return &age
	}
	return nil
}
