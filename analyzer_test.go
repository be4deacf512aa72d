package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

type completeCall struct {
	systemPrompt string
	userPrompt   string
	schema       string
}

// mockCompleter replays canned responses/errors in call order.
type mockCompleter struct {
	responses []string
	errs      []error
	calls     []completeCall
}

func (m *mockCompleter) Complete(systemPrompt, userPrompt, schema string, settings AgentSettings) (string, error) {
	i := len(m.calls)
	m.calls = append(m.calls, completeCall{systemPrompt, userPrompt, schema})

	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "{}", nil
}

func (m *mockCompleter) batchCalls() []completeCall {
	var batches []completeCall
	for _, call := range m.calls {
		if call.schema != "" {
			batches = append(batches, call)
		}
	}
	return batches
}

func testSettings(t *testing.T) *Settings {
	t.Helper()
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	return settings
}

func makePosts(n int) []Post {
	posts := make([]Post, n)
	for i := range posts {
		posts[i] = Post{
			ID:       fmt.Sprintf("post%d", i),
			Title:    fmt.Sprintf("Post number %d", i),
			Selftext: "Some complaint text",
			Comments: []Comment{},
		}
	}
	return posts
}

func newTestAnalyzer(t *testing.T, mock *mockCompleter) *ProblemAnalyzer {
	t.Helper()
	return &ProblemAnalyzer{completer: mock, settings: testSettings(t)}
}

func TestAnalyzeBatchPartitioning(t *testing.T) {
	tests := []struct {
		name          string
		posts         int
		wantBatches   int
		wantLastBatch int
	}{
		{"partial last batch", 25, 3, 5},
		{"exact multiple", 20, 2, 10},
		{"single short batch", 3, 1, 3},
		{"one full batch", 10, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCompleter{}
			for i := 0; i < tt.wantBatches; i++ {
				mock.responses = append(mock.responses, `{"problems":[{"title":"t","description":"d"}]}`)
			}
			mock.responses = append(mock.responses, `{"top_problems":[]}`)

			analyzer := newTestAnalyzer(t, mock)
			analyzer.AnalyzeRecruitmentProblems(makePosts(tt.posts))

			batches := mock.batchCalls()
			if len(batches) != tt.wantBatches {
				t.Fatalf("got %d batch calls, want %d", len(batches), tt.wantBatches)
			}

			last := batches[len(batches)-1]
			if got := strings.Count(last.userPrompt, "POST:"); got != tt.wantLastBatch {
				t.Errorf("last batch contains %d posts, want %d", got, tt.wantLastBatch)
			}
		})
	}
}

func TestAnalyzeBatchFailureIsolated(t *testing.T) {
	mock := &mockCompleter{
		errs: []error{errors.New("capability unavailable")},
		responses: []string{
			"",
			`{"problems":[{"title":"Ghosting","description":"Recruiters vanish mid-process"}]}`,
			`{"top_problems":[{"title":"Ghosting","description":"Recruiters vanish mid-process"}]}`,
		},
	}

	analyzer := newTestAnalyzer(t, mock)
	analysis := analyzer.AnalyzeRecruitmentProblems(makePosts(20))

	if _, tagged := analysis["error"]; tagged {
		t.Fatalf("analysis error-tagged despite surviving batch: %v", analysis["error"])
	}

	// The summary call only sees problems from the batch that succeeded.
	summary := mock.calls[len(mock.calls)-1]
	if summary.schema != "" {
		t.Fatal("last call should be the schemaless summary call")
	}
	if !strings.Contains(summary.userPrompt, "Ghosting") {
		t.Error("summary prompt missing problems from the surviving batch")
	}
}

func TestAnalyzeMalformedBatchResponseIsolated(t *testing.T) {
	mock := &mockCompleter{
		responses: []string{
			"this is not JSON",
			`{"problems":[{"title":"Fake listings","description":"d"}]}`,
			`{"ranked":[]}`,
		},
	}

	analyzer := newTestAnalyzer(t, mock)
	analysis := analyzer.AnalyzeRecruitmentProblems(makePosts(20))

	if _, tagged := analysis["error"]; tagged {
		t.Fatalf("analysis error-tagged despite surviving batch: %v", analysis["error"])
	}
}

func TestAnalyzeAllBatchesFail(t *testing.T) {
	mock := &mockCompleter{
		errs: []error{errors.New("down"), errors.New("down")},
	}

	analyzer := newTestAnalyzer(t, mock)
	analysis := analyzer.AnalyzeRecruitmentProblems(makePosts(20))

	if analysis["error"] != "No problems identified" {
		t.Errorf(`analysis["error"] = %v, want "No problems identified"`, analysis["error"])
	}

	// With nothing to summarize, the summarizer must not be invoked.
	if len(mock.calls) != 2 {
		t.Errorf("completer called %d times, want 2 (batches only)", len(mock.calls))
	}
}

func TestSummarizeEmptyProblems(t *testing.T) {
	mock := &mockCompleter{}
	analyzer := newTestAnalyzer(t, mock)

	analysis := analyzer.summarizeProblems(nil)

	if analysis["error"] != "No problems identified" {
		t.Errorf(`analysis["error"] = %v, want "No problems identified"`, analysis["error"])
	}
	if len(mock.calls) != 0 {
		t.Errorf("completer called %d times, want 0", len(mock.calls))
	}
}

func TestSummarizeCapabilityError(t *testing.T) {
	mock := &mockCompleter{errs: []error{errors.New("rate limited")}}
	analyzer := newTestAnalyzer(t, mock)

	analysis := analyzer.summarizeProblems([]Problem{{"title": "t"}})

	if analysis["error"] != "rate limited" {
		t.Errorf(`analysis["error"] = %v, want "rate limited"`, analysis["error"])
	}
}

func TestSummarizeParsesFencedResponse(t *testing.T) {
	mock := &mockCompleter{
		responses: []string{"```json\n{\"top_problems\":[],\"themes\":[\"ATS filters\"]}\n```"},
	}
	analyzer := newTestAnalyzer(t, mock)

	analysis := analyzer.summarizeProblems([]Problem{{"title": "t"}})

	if _, tagged := analysis["error"]; tagged {
		t.Fatalf("fenced JSON not parsed: %v", analysis["error"])
	}
	themes, ok := analysis["themes"].([]any)
	if !ok || len(themes) != 1 {
		t.Errorf("themes = %v, want one entry", analysis["themes"])
	}
}

func TestSummarizeTruncatesInput(t *testing.T) {
	mock := &mockCompleter{responses: []string{`{}`}}
	analyzer := newTestAnalyzer(t, mock)

	problems := []Problem{{"title": strings.Repeat("x", 20000)}}
	analyzer.summarizeProblems(problems)

	prompt := mock.calls[0].userPrompt
	budget := analyzer.settings.Limits.SummaryChars
	if got := utf8.RuneCountInString(prompt); got > budget+len("Problems list:\n") {
		t.Errorf("summary prompt is %d runes, want at most %d plus prefix", got, budget)
	}
}

func TestPrepareContent(t *testing.T) {
	comments := make([]Comment, 7)
	for i := range comments {
		comments[i] = Comment{ID: fmt.Sprintf("c%d", i), Body: fmt.Sprintf("comment %d", i)}
	}
	comments[0].Body = strings.Repeat("я", 300)

	posts := []Post{
		{Title: "First", Selftext: "Body text", Comments: comments},
		{Title: "Second", Comments: []Comment{}},
	}

	analyzer := newTestAnalyzer(t, &mockCompleter{})
	content := analyzer.prepareContent(posts)

	if !strings.Contains(content, "\n---\n") {
		t.Error("content missing post separator")
	}
	if got := strings.Count(content, "\n- "); got != 5 {
		t.Errorf("content contains %d comment lines, want 5", got)
	}
	if !strings.Contains(content, strings.Repeat("я", 200)+"...") {
		t.Error("long comment not truncated to 200 runes")
	}
	if strings.Contains(content, strings.Repeat("я", 201)) {
		t.Error("comment exceeds 200-rune budget")
	}
	if strings.Contains(content, "BODY: \n") {
		t.Error("empty selftext produced a BODY line")
	}
	if !strings.Contains(content, "POST: Second") {
		t.Error("content missing second post")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello"},
		{"multibyte safe", "héllö wörld", 6, "héllö "},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.input, tt.max)
			if got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateRunes produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
