package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

//go:embed config/batch-system-prompt.md
var batchSystemPrompt string

//go:embed config/summary-system-prompt.md
var summarySystemPrompt string

//go:embed config/batch-output-schema.json
var batchOutputSchema string

// completer abstracts the text-completion capability so tests can inject
// canned responses and failures.
type completer interface {
	Complete(systemPrompt, userPrompt, schema string, settings AgentSettings) (string, error)
}

// anthropicCompleter is the production completer backed by llmkit.
type anthropicCompleter struct {
	apiKey string
}

func (c *anthropicCompleter) Complete(systemPrompt, userPrompt, schema string, agent AgentSettings) (string, error) {
	settings := types.RequestSettings{
		Model:       agent.Model,
		MaxTokens:   agent.MaxTokens,
		Temperature: agent.Temperature,
	}
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, schema, c.apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return response.Content[0].Text, nil
}

// ProblemAnalyzer turns raw posts into a ranked problem report using a
// two-pass map/reduce over the completion capability.
type ProblemAnalyzer struct {
	completer completer
	settings  *Settings
}

// NewProblemAnalyzer creates an analyzer backed by the Anthropic API.
func NewProblemAnalyzer(apiKey string, settings *Settings) *ProblemAnalyzer {
	return &ProblemAnalyzer{
		completer: &anthropicCompleter{apiKey: apiKey},
		settings:  settings,
	}
}

// AnalyzeRecruitmentProblems extracts problem candidates from posts in
// batches and reduces them into a single ranked analysis. A failing batch
// contributes nothing and the run continues; the result is never nil.
func (a *ProblemAnalyzer) AnalyzeRecruitmentProblems(posts []Post) Analysis {
	log.Printf("Analyzing %d posts for recruitment problems...", len(posts))

	batchSize := a.settings.BatchSize
	totalBatches := (len(posts) + batchSize - 1) / batchSize

	var allProblems []Problem
	for i := 0; i < len(posts); i += batchSize {
		end := min(i+batchSize, len(posts))
		batchNum := i/batchSize + 1

		log.Printf("[%d/%d] Analyzing batch...", batchNum, totalBatches)
		problems, err := a.analyzeBatch(posts[i:end])
		if err != nil {
			log.Printf("✗ Batch %d failed: %v", batchNum, err)
			continue
		}

		log.Printf("✓ Batch %d: %d problems", batchNum, len(problems))
		allProblems = append(allProblems, problems...)
	}

	return a.summarizeProblems(allProblems)
}

// analyzeBatch submits one batch excerpt and parses the extracted problems.
func (a *ProblemAnalyzer) analyzeBatch(posts []Post) ([]Problem, error) {
	content := truncateRunes(a.prepareContent(posts), a.settings.Limits.BatchChars)
	prompt := fmt.Sprintf("Content to analyze:\n%s", content)

	text, err := a.completer.Complete(batchSystemPrompt, prompt, batchOutputSchema, a.settings.Agents.Extractor)
	if err != nil {
		return nil, fmt.Errorf("extractor failed: %w", err)
	}

	var result struct {
		Problems []Problem `json:"problems"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return nil, fmt.Errorf("parsing extractor response: %w", err)
	}
	return result.Problems, nil
}

// summarizeProblems reduces all problem candidates into the final analysis.
// Capability or parse failures yield an error-tagged analysis, never an abort.
func (a *ProblemAnalyzer) summarizeProblems(problems []Problem) Analysis {
	if len(problems) == 0 {
		return Analysis{"error": "No problems identified"}
	}

	log.Printf("Summarizing %d problem candidates...", len(problems))

	serialized, err := json.MarshalIndent(problems, "", "  ")
	if err != nil {
		return Analysis{"error": err.Error()}
	}

	prompt := fmt.Sprintf("Problems list:\n%s", truncateRunes(string(serialized), a.settings.Limits.SummaryChars))

	text, err := a.completer.Complete(summarySystemPrompt, prompt, "", a.settings.Agents.Summarizer)
	if err != nil {
		log.Printf("✗ Summary failed: %v", err)
		return Analysis{"error": err.Error()}
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(extractJSON(text)), &analysis); err != nil {
		log.Printf("✗ Parsing summary response: %v", err)
		return Analysis{"error": fmt.Sprintf("parsing summary response: %v", err)}
	}
	return analysis
}

// prepareContent builds the textual excerpt submitted for one batch: each
// post contributes its title, body and a handful of truncated comments.
func (a *ProblemAnalyzer) prepareContent(posts []Post) string {
	parts := make([]string, 0, len(posts))

	for _, post := range posts {
		var b strings.Builder
		fmt.Fprintf(&b, "POST: %s\n", post.Title)
		if post.Selftext != "" {
			fmt.Fprintf(&b, "BODY: %s\n", post.Selftext)
		}
		if len(post.Comments) > 0 {
			b.WriteString("TOP COMMENTS:\n")
			excerpt := post.Comments[:min(a.settings.Limits.ExcerptComments, len(post.Comments))]
			for _, comment := range excerpt {
				fmt.Fprintf(&b, "- %s...\n", truncateRunes(comment.Body, a.settings.Limits.CommentChars))
			}
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n---\n")
}

// truncateRunes cuts s to at most max runes. The cut is a hard cutoff, not
// sentence-aware, but never splits a UTF-8 sequence.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// extractJSON trims the markdown code fences models sometimes wrap around
// JSON output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
