package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "ExamDesk" {
		t.Errorf("T(AppTitle) = %q, want 'ExamDesk'", got)
	}

	got = T(ctx, "LoginError")
	if got != "Wrong password." {
		t.Errorf("T(LoginError) = %q, want 'Wrong password.'", got)
	}
}

func TestTranslateChinese(t *testing.T) {
	ctx := initLang(t, "zh")

	got := T(ctx, "AppTitle")
	if got != "备考台" {
		t.Errorf("T(AppTitle) = %q, want '备考台'", got)
	}

	got = T(ctx, "LoginError")
	if got != "密码错误。" {
		t.Errorf("T(LoginError) = %q, want '密码错误。'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "CollectionSaved", map[string]any{"Name": "cet4"})
	if got != `Collection "cet4" saved.` {
		t.Errorf("Td(CollectionSaved) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want fallback to key", got)
	}
}
