// Package format renders HTTP response bodies for the terminal.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"

	pkgformat "github.com/tombee/tingle/pkg/format"
)

// maxRenderSize bounds bodies that are pretty-printed or highlighted.
// Larger bodies are written as received.
const maxRenderSize = 5 * 1024 * 1024

// ansiEscapeRegex matches ANSI escape sequences.
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// sanitizeANSI removes escape sequences a server may have embedded.
func sanitizeANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// Kind is the rendering family of a body.
type Kind string

const (
	KindJSON     Kind = "json"
	KindMarkdown Kind = "markdown"
	KindXML      Kind = "xml"
	KindHTML     Kind = "html"
	KindText     Kind = "text"
	KindBinary   Kind = "binary"
)

// KindOf classifies a Content-Type value. Bodies without a usable type
// are sniffed: valid UTF-8 is text, anything else binary.
func KindOf(contentType string, body []byte) Kind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch {
		case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
			return KindJSON
		case mediaType == "text/markdown":
			return KindMarkdown
		case mediaType == "text/html":
			return KindHTML
		case mediaType == "application/xml", mediaType == "text/xml", strings.HasSuffix(mediaType, "+xml"):
			return KindXML
		case strings.HasPrefix(mediaType, "text/"):
			return KindText
		}
	}
	if utf8.Valid(body) {
		return KindText
	}
	return KindBinary
}

// Body renders a response body. JSON is indented; on a TTY JSON, XML and
// HTML are syntax highlighted and markdown is rendered with glamour.
// Binary bodies are replaced by a size note.
func Body(body []byte, contentType string, isTTY bool) (string, error) {
	kind := KindOf(contentType, body)
	if kind == KindBinary {
		return fmt.Sprintf("[binary body, %s bytes]", pkgformat.Abbreviate(int64(len(body)))), nil
	}
	if len(body) > maxRenderSize {
		return string(body), nil
	}

	content := sanitizeANSI(string(body))

	switch kind {
	case KindJSON:
		return formatJSON(content, isTTY)
	case KindMarkdown:
		return formatMarkdown(content, isTTY), nil
	case KindXML, KindHTML:
		return highlight(content, string(kind), isTTY), nil
	default:
		return content, nil
	}
}

func formatJSON(content string, isTTY bool) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(content), "", "  "); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return highlight(buf.String(), "json", isTTY), nil
}

// formatMarkdown falls back to plain text if glamour fails.
func formatMarkdown(content string, isTTY bool) string {
	if !isTTY {
		return content
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

func highlight(content, language string, isTTY bool) string {
	if !isTTY {
		return content
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, language, "terminal256", "monokai"); err != nil {
		return content
	}
	return buf.String()
}
