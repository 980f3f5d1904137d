// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package insights generates the optional LLM narrative section of a
// report. Generation is best-effort: a failed or disabled generator never
// blocks the report itself.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/logging"
)

// ErrDisabled is returned when insights are not configured.
var ErrDisabled = errors.New("insights disabled")

// Prompt budget: items beyond these caps are dropped before the call.
const (
	maxHeadlinesPerCompetitor = 10
	maxHitsPerCompetitor      = 5
	maxVideosPerCompetitor    = 5
	maxItemLength             = 200
)

const systemPrompt = "You are a competitive-intelligence analyst. " +
	"Given recent signals about a company's competitors, write a concise " +
	"narrative summary (3-5 paragraphs) of notable competitor activity, " +
	"trends, and what deserves attention. Plain text, no markdown."

// CompetitorDigest is the per-competitor input to the narrative.
type CompetitorDigest struct {
	Name        string
	Headlines   []string
	SearchHits  []string
	VideoTitles []string
	NewLinks    int64
}

// chatCompleter is the slice of the OpenAI client the generator uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces narrative insight sections.
type Generator struct {
	client      chatCompleter
	enabled     bool
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	log         zerolog.Logger
}

// NewGenerator creates a generator from configuration. A disabled config
// yields a generator whose Generate returns ErrDisabled.
func NewGenerator(cfg config.InsightsConfig) *Generator {
	g := &Generator{
		enabled:     cfg.Enabled,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		log:         logging.With().Str("component", "insights").Logger(),
	}
	if g.model == "" {
		g.model = openai.GPT4oMini
	}
	if g.maxTokens <= 0 {
		g.maxTokens = 1024
	}
	if g.timeout <= 0 {
		g.timeout = 60 * time.Second
	}
	if cfg.Enabled {
		g.client = openai.NewClient(cfg.APIKey)
	}
	return g
}

// Enabled reports whether the generator will produce narratives.
func (g *Generator) Enabled() bool {
	return g.enabled
}

// Generate produces the narrative for one report. Transient failures are
// retried once; the caller decides how to degrade on error.
func (g *Generator) Generate(ctx context.Context, companyName string, periodStart, periodEnd time.Time, digests []CompetitorDigest) (string, error) {
	if !g.enabled {
		return "", ErrDisabled
	}
	if len(digests) == 0 {
		return "", fmt.Errorf("insights: nothing to summarize")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(companyName, periodStart, periodEnd, digests)},
		},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(2 * time.Second)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			g.log.Warn().Err(err).Int("attempt", attempt+1).Msg("Chat completion failed")
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("insights: empty completion")
			continue
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("insights generation failed: %w", lastErr)
}

// buildPrompt renders the bounded user prompt.
func buildPrompt(companyName string, periodStart, periodEnd time.Time, digests []CompetitorDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nPeriod: %s to %s\n\n",
		companyName, periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))

	for _, d := range digests {
		fmt.Fprintf(&b, "Competitor: %s (%d new links this period)\n", d.Name, d.NewLinks)
		writeItems(&b, "Headlines", d.Headlines, maxHeadlinesPerCompetitor)
		writeItems(&b, "Web mentions", d.SearchHits, maxHitsPerCompetitor)
		writeItems(&b, "Videos", d.VideoTitles, maxVideosPerCompetitor)
		b.WriteString("\n")
	}
	return b.String()
}

// truncateItem caps an item at maxItemLength bytes, backing up to a rune
// boundary so the prompt stays valid UTF-8.
func truncateItem(item string) string {
	if len(item) <= maxItemLength {
		return item
	}
	cut := maxItemLength
	for cut > 0 && !utf8.RuneStart(item[cut]) {
		cut--
	}
	return item[:cut]
}

func writeItems(b *strings.Builder, label string, items []string, max int) {
	if len(items) == 0 {
		return
	}
	if len(items) > max {
		items = items[:max]
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		item = strings.TrimSpace(item)
		fmt.Fprintf(b, "- %s\n", truncateItem(item))
	}
}
