package domain

import "strings"

// Style is the configured desktop category page style.
type Style string

const (
	// StyleUnset means no desktop category page style is configured.
	StyleUnset Style = ""
	// StyleCategoriesOnly renders the category grid without embedded topics.
	StyleCategoriesOnly Style = "categories_only"
	// StyleCategoriesAndLatestTopics embeds latest topics by bump date.
	StyleCategoriesAndLatestTopics Style = "categories_and_latest_topics"
	// StyleCategoriesAndLatestTopicsCreatedDate embeds latest topics by creation date.
	StyleCategoriesAndLatestTopicsCreatedDate Style = "categories_and_latest_topics_created_date"
	// StyleCategoriesAndTopTopics embeds top topics.
	StyleCategoriesAndTopTopics Style = "categories_and_top_topics"
)

// ParseStyle normalizes a configured style value. Unknown values are kept as
// is and resolve to categories-only.
func ParseStyle(raw string) Style {
	return Style(strings.ToLower(strings.TrimSpace(raw)))
}

type modeKind uint8

const (
	modeCategoriesOnly modeKind = iota
	modeLatestEmbedded
	modeTopEmbedded
)

// Mode is the resolved sourcing strategy for a category page. The zero value
// is ModeCategoriesOnly.
type Mode struct {
	kind modeKind
}

var (
	// ModeCategoriesOnly loads categories without an embedded topic list.
	ModeCategoriesOnly = Mode{kind: modeCategoriesOnly}
	// ModeLatestEmbedded loads categories together with latest topics.
	ModeLatestEmbedded = Mode{kind: modeLatestEmbedded}
	// ModeTopEmbedded loads categories together with top topics.
	ModeTopEmbedded = Mode{kind: modeTopEmbedded}
)

// ResolveMode maps the device class and configured style to a sourcing
// strategy. Mobile views always load categories only.
func ResolveMode(isMobile bool, style Style) Mode {
	if isMobile {
		return ModeCategoriesOnly
	}
	switch style {
	case StyleCategoriesAndLatestTopics, StyleCategoriesAndLatestTopicsCreatedDate:
		return ModeLatestEmbedded
	case StyleCategoriesAndTopTopics:
		return ModeTopEmbedded
	default:
		return ModeCategoriesOnly
	}
}

// Filter returns the upstream topic filter for embedded modes.
func (m Mode) Filter() (string, bool) {
	switch m.kind {
	case modeLatestEmbedded:
		return "latest", true
	case modeTopEmbedded:
		return "top", true
	default:
		return "", false
	}
}

// EmbedsTopics reports whether the mode loads a topic list with categories.
func (m Mode) EmbedsTopics() bool {
	_, ok := m.Filter()
	return ok
}

func (m Mode) String() string {
	switch m.kind {
	case modeLatestEmbedded:
		return "latest_embedded"
	case modeTopEmbedded:
		return "top_embedded"
	default:
		return "categories_only"
	}
}
