package export

import (
	"html"
	"strings"
)

// ContentToHTML converts stored document text to HTML for export. Documents
// are plain text with light markdown habits (headings, lists), so the renderer
// handles those and leaves everything else as escaped paragraphs.
func ContentToHTML(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	var out strings.Builder
	paragraphs := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	for _, para := range paragraphs {
		para = strings.Trim(para, "\n")
		if strings.TrimSpace(para) == "" {
			continue
		}
		lines := strings.Split(para, "\n")

		if block, ok := renderListBlock(lines); ok {
			out.WriteString(block)
			continue
		}
		if len(lines) == 1 {
			if heading, ok := renderHeading(lines[0]); ok {
				out.WriteString(heading)
				continue
			}
		}

		out.WriteString("<p>")
		for i, line := range lines {
			if i > 0 {
				out.WriteString("<br>")
			}
			out.WriteString(html.EscapeString(line))
		}
		out.WriteString("</p>\n")
	}
	return out.String()
}

func renderHeading(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "### "):
		return "<h4>" + html.EscapeString(strings.TrimPrefix(line, "### ")) + "</h4>\n", true
	case strings.HasPrefix(line, "## "):
		return "<h3>" + html.EscapeString(strings.TrimPrefix(line, "## ")) + "</h3>\n", true
	case strings.HasPrefix(line, "# "):
		return "<h2>" + html.EscapeString(strings.TrimPrefix(line, "# ")) + "</h2>\n", true
	}
	return "", false
}

func renderListBlock(lines []string) (string, bool) {
	for _, line := range lines {
		if !strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "* ") {
			return "", false
		}
	}
	var out strings.Builder
	out.WriteString("<ul>\n")
	for _, line := range lines {
		item := strings.TrimPrefix(strings.TrimPrefix(line, "- "), "* ")
		out.WriteString("<li>" + html.EscapeString(item) + "</li>\n")
	}
	out.WriteString("</ul>\n")
	return out.String(), true
}
