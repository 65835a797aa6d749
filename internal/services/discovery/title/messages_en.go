package title

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, keyCategoriesTitle, defaultCategoriesTitle)
	message.SetString(lang, "filters.latest.title", "Latest")
	message.SetString(lang, "filters.top.title", "Top")
}
