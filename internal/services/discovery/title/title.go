// Package title produces localized page titles for discovery views.
package title

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	keyCategoriesTitle     = "filters.categories.title"
	defaultCategoriesTitle = "Categories"

	// HomepageCategories is the homepage setting under which the categories
	// view is the site root.
	HomepageCategories = "categories"
)

var supported = []language.Tag{
	language.English,
	language.MustParse("pt-BR"),
}

var matcher = language.NewMatcher(supported)

// Localizer is the minimal message-printer contract titles need.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// CategoriesTitle returns the categories view title, or "" when the view is
// the homepage and the site name alone titles the page.
func CategoriesTitle(loc Localizer, homepage string) string {
	if strings.EqualFold(strings.TrimSpace(homepage), HomepageCategories) {
		return ""
	}
	if loc == nil {
		return defaultCategoriesTitle
	}
	value := strings.TrimSpace(loc.Sprintf(keyCategoriesTitle))
	if value == "" || value == keyCategoriesTitle {
		return defaultCategoriesTitle
	}
	return value
}

// Printer returns a message printer for the best supported match among the
// given preferences. Each preference may be a tag ("pt-BR") or an
// Accept-Language header value. Blank and unparsable values are skipped, and
// English is used when nothing matches.
func Printer(preferences ...string) *message.Printer {
	return message.NewPrinter(Match(preferences...))
}

// Match resolves preferences to a supported language tag.
func Match(preferences ...string) language.Tag {
	var desired []language.Tag
	for _, pref := range preferences {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		desired = append(desired, tags...)
	}
	if len(desired) == 0 {
		return language.English
	}
	_, index, confidence := matcher.Match(desired...)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}
