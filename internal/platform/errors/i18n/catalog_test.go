package i18n

import "testing"

func TestGetCatalogMatchesLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		locale string
		want   string
	}{
		{locale: "", want: BaseLocale},
		{locale: "en-US", want: BaseLocale},
		{locale: "en-GB", want: BaseLocale},
		{locale: "pt-BR", want: "pt-BR"},
		{locale: "pt", want: "pt-BR"},
		{locale: "fr-FR", want: BaseLocale},
		{locale: "not a locale!", want: BaseLocale},
	}
	for _, tc := range tests {
		if got := GetCatalog(tc.locale).Locale(); got != tc.want {
			t.Fatalf("GetCatalog(%q) = %q, want %q", tc.locale, got, tc.want)
		}
	}
}

func TestBuiltinCatalogsRenderMetadata(t *testing.T) {
	t.Parallel()

	en := GetCatalog("en-US")
	if got := en.Format("NETWORK_FAILURE", map[string]string{"status": "503"}); got != "Could not reach the forum (HTTP 503). Please try again." {
		t.Fatalf("en network failure = %q", got)
	}
	if got := en.Format("NETWORK_FAILURE", nil); got != "Could not reach the forum. Please try again." {
		t.Fatalf("en network failure without status = %q", got)
	}
	if got := GetCatalog("pt-BR").Format("NOT_FOUND", nil); got != "Nada foi encontrado aqui." {
		t.Fatalf("pt-BR not found = %q", got)
	}
}

func TestBuiltinCatalogsCoverSameCodes(t *testing.T) {
	t.Parallel()

	for code := range enUSMessages {
		if _, ok := ptBRMessages[code]; !ok {
			t.Fatalf("pt-BR catalog missing %s", code)
		}
	}
	if len(enUSMessages) != len(ptBRMessages) {
		t.Fatalf("catalog sizes differ: %d vs %d", len(enUSMessages), len(ptBRMessages))
	}
}

func TestFormatFallbacks(t *testing.T) {
	t.Parallel()

	cat := NewCatalog("test", map[Code]string{
		"code":   "hello {{.Name}}",
		"broken": "{{ if .Name }}",
		"exec":   "{{ call .Name }}",
	})
	if got := cat.Format("unknown", nil); got != "unknown" {
		t.Fatalf("unknown code = %q", got)
	}
	if got := cat.Format("code", nil); got != "hello <no value>" {
		t.Fatalf("missing metadata = %q", got)
	}
	if got := cat.Format("broken", map[string]string{"Name": "X"}); got != "{{ if .Name }}" {
		t.Fatalf("parse error fallback = %q", got)
	}
	if got := cat.Format("exec", map[string]string{"Name": "X"}); got != "{{ call .Name }}" {
		t.Fatalf("execute error fallback = %q", got)
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("x-test", map[Code]string{"code": "ok"})
	RegisterCatalog("x-test", custom)
	if got := GetCatalog("x-test"); got != custom {
		t.Fatal("expected registered catalog")
	}
}
