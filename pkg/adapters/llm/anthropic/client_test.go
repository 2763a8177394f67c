package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type fakeMessages struct {
	got  sdk.MessageNewParams
	resp *sdk.Message
	err  error
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.got = body
	return f.resp, f.err
}

func TestUnit_Execute(t *testing.T) {
	fake := &fakeMessages{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: "hello "}, {Type: "text", Text: "world"}},
	}}
	c := NewClientWithMessages(fake, Config{Model: "m", MaxTokens: 128})

	out, err := c.Unit("lead", "Research leader.").Execute(context.Background(), "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
	if string(fake.got.Model) != "m" || fake.got.MaxTokens != 128 {
		t.Fatalf("unexpected params: model=%s max_tokens=%d", fake.got.Model, fake.got.MaxTokens)
	}
	if len(fake.got.System) != 1 || fake.got.System[0].Text != "Research leader." {
		t.Fatalf("system prompt not forwarded: %+v", fake.got.System)
	}
}

func TestUnit_ExecuteError(t *testing.T) {
	boom := errors.New("boom")
	c := NewClientWithMessages(&fakeMessages{err: boom}, Config{})

	_, err := c.Unit("lead", "").Execute(context.Background(), "go")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestUnit_EmptyContent(t *testing.T) {
	c := NewClientWithMessages(&fakeMessages{resp: &sdk.Message{}}, Config{})

	if _, err := c.Unit("lead", "").Execute(context.Background(), "go"); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestNewClientWithMessages_Defaults(t *testing.T) {
	c := NewClientWithMessages(&fakeMessages{}, Config{})
	if c.model != DefaultModel {
		t.Fatalf("expected default model, got %s", c.model)
	}
	if c.maxTokens != 4096 {
		t.Fatalf("expected 4096 max tokens, got %d", c.maxTokens)
	}
}
