package secrets_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/secrets"
)

func staticLoader(vals map[string]string) secrets.Loader {
	return func() (map[string]string, error) { return vals, nil }
}

func TestVaultInitialLoad(t *testing.T) {
	v, err := secrets.NewVault(staticLoader(map[string]string{
		"NOTION_TOKEN":      "secret_abc123def456",
		"SLACK_WEBHOOK_URL": "https://hooks.slack.example/T000/B000/xyz",
	}))
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if got := v.Get("NOTION_TOKEN"); got != "secret_abc123def456" {
		t.Errorf("Get(NOTION_TOKEN) = %q", got)
	}
	if got := v.Get("UNSET"); got != "" {
		t.Errorf("Get(UNSET) = %q, want empty", got)
	}
}

func TestVaultInitialLoadFailure(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("env unavailable")
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVaultReloadSwapsValues(t *testing.T) {
	token := "secret_before"
	v, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"NOTION_TOKEN": token}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	token = "secret_after"
	if err := v.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := v.Get("NOTION_TOKEN"); got != "secret_after" {
		t.Errorf("after reload Get = %q, want secret_after", got)
	}
}

func TestVaultReloadFailureKeepsOldValues(t *testing.T) {
	calls := 0
	v, err := secrets.NewVault(func() (map[string]string, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("vault unavailable")
		}
		return map[string]string{"NOTION_TOKEN": "secret_original"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := v.Get("NOTION_TOKEN"); got != "secret_original" {
		t.Errorf("failed reload clobbered value: got %q", got)
	}
}

func TestVaultConcurrentGetAndReload(t *testing.T) {
	v, err := secrets.NewVault(staticLoader(map[string]string{"K": "V"}))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(2)
		go func() { defer wg.Done(); _ = v.Get("K") }()
		go func() { defer wg.Done(); _ = v.Reload() }()
	}
	wg.Wait()
}

func TestVaultRedacted(t *testing.T) {
	v, err := secrets.NewVault(staticLoader(map[string]string{
		"NOTION_TOKEN": "secret_abc123def456",
		"PIN":          "91",
	}))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"NOTION_TOKEN", "se****"},
		{"PIN", "****"},
		{"UNSET", ""},
	}
	for _, tt := range tests {
		if got := v.Redacted(tt.key); got != tt.want {
			t.Errorf("Redacted(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestVaultRedactString(t *testing.T) {
	v, err := secrets.NewVault(staticLoader(map[string]string{
		"DISCORD_WEBHOOK_URL": "https://discord.example/api/webhooks/123/tok",
		"PIN":                 "91", // too short to redact safely
	}))
	if err != nil {
		t.Fatal(err)
	}

	in := `discord: build request: parse "https://discord.example/api/webhooks/123/tok": bad port 91`
	got := v.RedactString(in)
	if strings.Contains(got, "webhooks/123/tok") {
		t.Errorf("webhook URL survived redaction: %q", got)
	}
	if !strings.Contains(got, "ht****") {
		t.Errorf("expected masked URL in %q", got)
	}
	if !strings.Contains(got, "91") {
		t.Errorf("two-character value must not be redacted, got %q", got)
	}

	clean := "dispatch loop started"
	if got := v.RedactString(clean); got != clean {
		t.Errorf("string without secrets changed: %q", got)
	}
}

func TestVaultKeys(t *testing.T) {
	v, err := secrets.NewVault(staticLoader(map[string]string{
		"NOTION_TOKEN":      "a",
		"SLACK_WEBHOOK_URL": "b",
	}))
	if err != nil {
		t.Fatal(err)
	}

	keys := v.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	for _, k := range keys {
		if k != "NOTION_TOKEN" && k != "SLACK_WEBHOOK_URL" {
			t.Errorf("unexpected key %q", k)
		}
	}
}

func TestEnvLoaderOmitsUnset(t *testing.T) {
	t.Setenv("DISPATCHD_TEST_SECRET", "mysecret")
	vals, err := secrets.EnvLoader("DISPATCHD_TEST_SECRET", "DISPATCHD_UNSET_SECRET")()
	if err != nil {
		t.Fatalf("EnvLoader: %v", err)
	}
	if vals["DISPATCHD_TEST_SECRET"] != "mysecret" {
		t.Errorf("got %q, want mysecret", vals["DISPATCHD_TEST_SECRET"])
	}
	if _, ok := vals["DISPATCHD_UNSET_SECRET"]; ok {
		t.Error("unset env var must be omitted, not empty")
	}
}
