package config

import "testing"

func TestEnvString(t *testing.T) {
	t.Setenv("CRAWLER_TEST_STRING", "  value  ")
	got, ok := EnvString("CRAWLER_TEST_STRING")
	if !ok || got != "value" {
		t.Fatalf("EnvString = %q, %v, want trimmed value", got, ok)
	}

	t.Setenv("CRAWLER_TEST_STRING", "   ")
	if _, ok := EnvString("CRAWLER_TEST_STRING"); ok {
		t.Fatal("whitespace-only value should read as unset")
	}

	if _, ok := EnvString("CRAWLER_TEST_MISSING"); ok {
		t.Fatal("missing variable should read as unset")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("CRAWLER_TEST_INT", "42")
	got, ok, err := EnvInt("CRAWLER_TEST_INT")
	if err != nil || !ok || got != 42 {
		t.Fatalf("EnvInt = %d, %v, %v", got, ok, err)
	}

	t.Setenv("CRAWLER_TEST_INT", "forty-two")
	_, ok, err = EnvInt("CRAWLER_TEST_INT")
	if err == nil || !ok {
		t.Fatalf("EnvInt on garbage = ok=%v err=%v, want set with error", ok, err)
	}

	_, ok, err = EnvInt("CRAWLER_TEST_MISSING")
	if err != nil || ok {
		t.Fatalf("EnvInt on missing = ok=%v err=%v, want unset without error", ok, err)
	}
}

func TestEnvBool(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "1": true, "false": false, "0": false} {
		t.Setenv("CRAWLER_TEST_BOOL", raw)
		got, ok, err := EnvBool("CRAWLER_TEST_BOOL")
		if err != nil || !ok || got != want {
			t.Fatalf("EnvBool(%q) = %v, %v, %v", raw, got, ok, err)
		}
	}

	t.Setenv("CRAWLER_TEST_BOOL", "maybe")
	if _, _, err := EnvBool("CRAWLER_TEST_BOOL"); err == nil {
		t.Fatal("EnvBool on garbage should error")
	}
}
