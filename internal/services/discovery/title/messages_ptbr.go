package title

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("pt-BR")

	message.SetString(lang, keyCategoriesTitle, "Categorias")
	message.SetString(lang, "filters.latest.title", "Recentes")
	message.SetString(lang, "filters.top.title", "Populares")
}
