package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestStartupLoggerEvent(t *testing.T) {
	var buf bytes.Buffer
	NewStartupLogger("compress-cli").
		CommitHash("abc123").
		ServiceURL("http://localhost:8000").
		Feature("passwordProtection", true).
		Config("mode", "quality_based").
		LogTo(zerolog.New(&buf))

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}

	app, ok := doc["app"].(map[string]interface{})
	if !ok || app["name"] != "compress-cli" || app["commitHash"] != "abc123" {
		t.Errorf("unexpected app block: %v", doc["app"])
	}
	if _, ok := app["buildTime"]; ok {
		t.Error("buildTime should be omitted when unset")
	}
	if doc["serviceUrl"] != "http://localhost:8000" {
		t.Errorf("unexpected serviceUrl: %v", doc["serviceUrl"])
	}
	features, _ := doc["features"].(map[string]interface{})
	if features["passwordProtection"] != true {
		t.Errorf("unexpected features: %v", doc["features"])
	}
	config, _ := doc["config"].(map[string]interface{})
	if config["mode"] != "quality_based" {
		t.Errorf("unexpected config: %v", doc["config"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"trace": zerolog.TraceLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("COMPRESS_TEST_VAR", "")
	if got := EnvOrDefault("COMPRESS_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	t.Setenv("COMPRESS_TEST_VAR", "set")
	if got := EnvOrDefault("COMPRESS_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("got %q", got)
	}
}
