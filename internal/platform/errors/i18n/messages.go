package i18n

// Codes mirror internal/platform/errors/codes.go.
var enUSMessages = map[Code]string{
	"UNKNOWN":           "Something went wrong. Please try again later.",
	"INVALID_ARGUMENT":  "The request is invalid.",
	"NOT_FOUND":         "Nothing was found here.",
	"MALFORMED_PAYLOAD": "The forum returned data we could not read.",
	"NETWORK_FAILURE":   "Could not reach the forum{{if .status}} (HTTP {{.status}}){{end}}. Please try again.",
	"LIST_DISCARDED":    "This list is no longer open. Reload the page.",
	"STORE_UNAVAILABLE": "Storage is temporarily unavailable.",
}

var ptBRMessages = map[Code]string{
	"UNKNOWN":           "Algo deu errado. Tente novamente mais tarde.",
	"INVALID_ARGUMENT":  "A requisição é inválida.",
	"NOT_FOUND":         "Nada foi encontrado aqui.",
	"MALFORMED_PAYLOAD": "O fórum retornou dados que não conseguimos ler.",
	"NETWORK_FAILURE":   "Não foi possível acessar o fórum{{if .status}} (HTTP {{.status}}){{end}}. Tente novamente.",
	"LIST_DISCARDED":    "Esta lista não está mais aberta. Recarregue a página.",
	"STORE_UNAVAILABLE": "O armazenamento está temporariamente indisponível.",
}
