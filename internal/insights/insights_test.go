// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package insights

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/onside-hq/onside/internal/config"
)

type stubCompleter struct {
	failures int
	calls    int
	content  string
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return openai.ChatCompletionResponse{}, errors.New("upstream error")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func enabledGenerator(c chatCompleter) *Generator {
	g := NewGenerator(config.InsightsConfig{
		Enabled: true,
		APIKey:  "test",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	g.client = c
	return g
}

func digests() []CompetitorDigest {
	return []CompetitorDigest{
		{
			Name:      "Acme",
			Headlines: []string{"Acme raises Series B", "Acme launches widget"},
			NewLinks:  7,
		},
	}
}

func TestGenerateDisabled(t *testing.T) {
	g := NewGenerator(config.InsightsConfig{Enabled: false})
	if g.Enabled() {
		t.Error("Enabled() = true for disabled config")
	}
	_, err := g.Generate(context.Background(), "Co", time.Now(), time.Now(), digests())
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Generate = %v, want ErrDisabled", err)
	}
}

func TestGenerateSuccess(t *testing.T) {
	stub := &stubCompleter{content: "  Competitors were busy.  "}
	g := enabledGenerator(stub)

	out, err := g.Generate(context.Background(), "Co", time.Now(), time.Now(), digests())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "Competitors were busy." {
		t.Errorf("narrative = %q", out)
	}
}

func TestGenerateRetriesOnce(t *testing.T) {
	stub := &stubCompleter{failures: 1, content: "ok"}
	g := enabledGenerator(stub)

	out, err := g.Generate(context.Background(), "Co", time.Now(), time.Now(), digests())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "ok" {
		t.Errorf("narrative = %q, want ok", out)
	}
	if stub.calls != 2 {
		t.Errorf("calls = %d, want 2", stub.calls)
	}
}

func TestGenerateGivesUpAfterRetry(t *testing.T) {
	stub := &stubCompleter{failures: 5}
	g := enabledGenerator(stub)

	if _, err := g.Generate(context.Background(), "Co", time.Now(), time.Now(), digests()); err == nil {
		t.Error("expected error after exhausted retries")
	}
	if stub.calls != 2 {
		t.Errorf("calls = %d, want 2", stub.calls)
	}
}

func TestGenerateEmptyDigests(t *testing.T) {
	g := enabledGenerator(&stubCompleter{content: "x"})
	if _, err := g.Generate(context.Background(), "Co", time.Now(), time.Now(), nil); err == nil {
		t.Error("expected error for empty digests")
	}
}

func TestBuildPromptBounded(t *testing.T) {
	many := make([]string, 50)
	for i := range many {
		many[i] = strings.Repeat("h", 500)
	}
	prompt := buildPrompt("Co", time.Now(), time.Now(), []CompetitorDigest{
		{Name: "Acme", Headlines: many},
	})

	if got := strings.Count(prompt, "\n- "); got > maxHeadlinesPerCompetitor {
		t.Errorf("prompt has %d items, want <= %d", got, maxHeadlinesPerCompetitor)
	}
	for _, line := range strings.Split(prompt, "\n") {
		if len(line) > maxItemLength+2 {
			t.Errorf("line exceeds budget: %d chars", len(line))
		}
	}
}

func TestTruncateItemKeepsValidUTF8(t *testing.T) {
	// The leading ASCII byte puts every two-byte rune on an odd offset,
	// so a cut at maxItemLength lands mid-rune.
	long := "a" + strings.Repeat("ü", maxItemLength)

	got := truncateItem(long)
	if len(got) > maxItemLength {
		t.Errorf("truncated to %d bytes, want <= %d", len(got), maxItemLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncated item is not valid UTF-8")
	}

	prompt := buildPrompt("Co", time.Now(), time.Now(), []CompetitorDigest{
		{Name: "Acme", Headlines: []string{long}},
	})
	if !utf8.ValidString(prompt) {
		t.Error("prompt is not valid UTF-8")
	}

	if short := truncateItem("kurz"); short != "kurz" {
		t.Errorf("short item changed: %q", short)
	}
}
