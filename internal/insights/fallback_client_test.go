package insights

import (
	"context"
	"errors"
	"testing"
)

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &captureLLMClient{resp: LLMResponse{Text: "primary"}}
	fallback := &captureLLMClient{resp: LLMResponse{Text: "fallback"}}
	client := NewFallbackLLMClient(primary, fallback, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "primary" {
		t.Fatalf("expected primary response, got %q", resp.Text)
	}
	if fallback.called != 0 {
		t.Fatal("fallback must not be called when primary succeeds")
	}
}

func TestFallbackClientFallsBack(t *testing.T) {
	primary := &captureLLMClient{err: errors.New("groq down")}
	fallback := &captureLLMClient{resp: LLMResponse{Text: "fallback"}}
	client := NewFallbackLLMClient(primary, fallback, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "fallback" {
		t.Fatalf("expected fallback response, got %q", resp.Text)
	}
}

func TestFallbackClientBothFail(t *testing.T) {
	primary := &captureLLMClient{err: errors.New("groq down")}
	fallback := &captureLLMClient{err: errors.New("gemini down")}
	client := NewFallbackLLMClient(primary, fallback, nil)

	_, err := client.Complete(context.Background(), LLMRequest{})
	if err == nil || err.Error() != "gemini down" {
		t.Fatalf("expected last error to surface, got %v", err)
	}
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	primary := &captureLLMClient{err: errors.New("groq down")}
	client := NewFallbackLLMClient(primary, nil, nil)

	_, err := client.Complete(context.Background(), LLMRequest{})
	if err == nil || err.Error() != "groq down" {
		t.Fatalf("expected primary error to surface, got %v", err)
	}
}
