package validation

import (
	"net/url"
	"regexp"
)

var (
	emailPattern        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern       = regexp.MustCompile(`^\d+$`)
	lettersPattern      = regexp.MustCompile(`^[a-zA-Z]+$`)
	alphanumericPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	noSpecialPattern    = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)
)

// Predicate is a named custom check on a text answer
type Predicate func(value string) bool

// predicates is the fixed registry referenced by ConstraintRecord.CustomValidation.
var predicates = map[string]Predicate{
	"isValidEmail":       emailPattern.MatchString,
	"isValidURL":         isParseableURL,
	"isNumericOnly":      digitsPattern.MatchString,
	"isAlphaOnly":        lettersPattern.MatchString,
	"isAlphanumericOnly": alphanumericPattern.MatchString,
	"noSpecialChars":     noSpecialPattern.MatchString,
}

// LookupPredicate returns the named predicate, or nil if the name is unknown
func LookupPredicate(name string) Predicate {
	return predicates[name]
}

// An absolute URL needs a scheme plus either a host or an opaque part
// ("mailto:a@b.c").
func isParseableURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}
