package export

import (
	"html/template"
	"strings"
	"testing"
	"time"
)

func TestContentToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty content",
			input:    "",
			expected: "",
		},
		{
			name:     "simple paragraph",
			input:    "Hello world",
			expected: "<p>Hello world</p>",
		},
		{
			name:     "paragraphs split on blank lines",
			input:    "First paragraph.\n\nSecond paragraph.",
			expected: "<p>First paragraph.</p>\n<p>Second paragraph.</p>",
		},
		{
			name:     "intra-paragraph newline becomes br",
			input:    "Line one\nLine two",
			expected: "<p>Line one<br>Line two</p>",
		},
		{
			name:     "heading level one",
			input:    "# Cold Open",
			expected: "<h2>Cold Open</h2>",
		},
		{
			name:     "heading level three",
			input:    "### B-roll notes",
			expected: "<h4>B-roll notes</h4>",
		},
		{
			name:     "dash list",
			input:    "- tripod\n- lav mic",
			expected: "<ul>\n<li>tripod</li>\n<li>lav mic</li>\n</ul>",
		},
		{
			name:     "star list",
			input:    "* alpha\n* beta",
			expected: "<li>alpha</li>",
		},
		{
			name:     "html is escaped",
			input:    "say <b>hi</b> & wave",
			expected: "<p>say &lt;b&gt;hi&lt;/b&gt; &amp; wave</p>",
		},
		{
			name:     "windows line endings",
			input:    "one\r\n\r\ntwo",
			expected: "<p>one</p>\n<p>two</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := strings.TrimSpace(ContentToHTML(tt.input))
			expected := strings.TrimSpace(tt.expected)
			if !strings.Contains(result, expected) {
				t.Errorf("ContentToHTML() = %v, want %v", result, expected)
			}
		})
	}
}

func TestContentToHTMLMixedBlocks(t *testing.T) {
	input := "## Hook\n\nOpen on the studio.\n\n- shot list\n- script pass"
	html := ContentToHTML(input)

	for _, want := range []string{"<h3>Hook</h3>", "<p>Open on the studio.</p>", "<li>shot list</li>"} {
		if !strings.Contains(html, want) {
			t.Errorf("ContentToHTML() missing %q in %v", want, html)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},       // Spaces encoded as %20, not +
		{"test+sign", "test%2Bsign"},           // + signs are encoded
		{"special<>", "special%3C%3E"},         // Special chars encoded
		{"normal-text.txt", "normal-text.txt"}, // Unreserved chars pass through
		{"", ""},                               // Empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	data := TemplateData{
		Title:       "How We Plan a Video - script",
		Kind:        "script",
		Version:     4,
		ContentHTML: template.HTML("<p>This is the content.</p>"),
		Author:      "Avery",
		UpdatedAt:   time.Date(2026, 8, 20, 15, 4, 0, 0, time.UTC),
		ProjectName: "Main Channel",
		Revisions: []TemplateRevision{
			{Version: 4, CreatedBy: "Avery", CreatedAt: time.Date(2026, 8, 20, 15, 4, 0, 0, time.UTC), Preview: "This is the content."},
			{Version: 3, CreatedBy: "Sam", CreatedAt: time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC), Preview: "Earlier draft."},
		},
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}

	if !strings.Contains(html, "How We Plan a Video - script") {
		t.Error("HTML missing title")
	}
	if !strings.Contains(html, "Main Channel") {
		t.Error("HTML missing project name")
	}
	if !strings.Contains(html, "Avery") {
		t.Error("HTML missing author")
	}
	if !strings.Contains(html, "Revision history") {
		t.Error("HTML missing revision section")
	}
	if !strings.Contains(html, "Earlier draft.") {
		t.Error("HTML missing revision preview")
	}

	// ContentHTML must pass through unescaped.
	if strings.Contains(html, "&lt;p&gt;") {
		t.Error("HTML content was escaped - should be rendered as raw HTML")
	}
	if !strings.Contains(html, "<p>This is the content.</p>") {
		t.Error("HTML content should contain unescaped <p> tags")
	}
}

func TestRenderDocumentHTMLWithoutRevisions(t *testing.T) {
	data := TemplateData{
		Title:       "Notes",
		Kind:        "notes",
		Version:     1,
		ContentHTML: template.HTML("<p>Just notes.</p>"),
		UpdatedAt:   time.Date(2026, 8, 20, 15, 4, 0, 0, time.UTC),
		ProjectName: "Main Channel",
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}
	if strings.Contains(html, "Revision history") {
		t.Error("revision section should be omitted when there are no revisions")
	}
}
