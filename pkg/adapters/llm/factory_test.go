package llm

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewFactory_Echo(t *testing.T) {
	f, err := NewFactory(&Config{Provider: ProviderEcho, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := f.NewUnit("analyst", "ignored").Execute(context.Background(), "q")
	if err != nil || out != "[analyst] q" {
		t.Fatalf("unexpected output %q (err=%v)", out, err)
	}
}

func TestNewFactory_Unsupported(t *testing.T) {
	if _, err := NewFactory(&Config{Provider: "bedrock"}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewFactory_AnthropicRequiresKey(t *testing.T) {
	if _, err := NewFactory(&Config{Provider: ProviderAnthropic}); err == nil {
		t.Fatal("expected error without API key")
	}
}
