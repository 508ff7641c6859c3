package coder

import (
	"bytes"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
	"os"
	"strings"
	"unicode/utf8"
)

type Text struct{}

func (*Text) Name() string         { return "Text" }
func (*Text) Extensions() []string { return []string{".txt", ".log", ".event"} }

// Decode returns the non-empty lines of the file, trimmed. Files that are
// not valid UTF-8 are read as Windows-1252.
func (*Text) Decode(path string, _ *Options) (interface{}, error) {
	data, err := readText(path)
	if err != nil {
		return nil, errors.WithMessage(err, "[Text]")
	}
	var lines []string
	for _, line := range strings.Split(data, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (*Text) Encode(v interface{}, path string, _ *Options) error {
	var data string
	switch val := v.(type) {
	case string:
		data = val
	case []byte:
		data = string(val)
	case []string:
		data = strings.Join(val, "\n") + "\n"
	default:
		return errors.Errorf("[Text] unsupported payload %T", v)
	}
	return errors.WithStack(os.WriteFile(path, []byte(data), 0o644))
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrap(err, "decode Windows-1252 failed")
	}
	return string(decoded), nil
}

// Markdown renders documents to HTML, and to plain text unless the html
// style is requested.
type Markdown struct{}

func (*Markdown) Name() string         { return "Markdown" }
func (*Markdown) Extensions() []string { return []string{".md"} }

func (*Markdown) Decode(path string, opts *Options) (interface{}, error) {
	src, err := readText(path)
	if err != nil {
		return nil, errors.WithMessage(err, "[Markdown]")
	}
	var buf bytes.Buffer
	if err = goldmark.Convert([]byte(src), &buf); err != nil {
		return nil, errors.Wrap(err, "[Markdown] render failed")
	}
	switch opts.Style {
	case StyleHTML:
		return buf.String(), nil
	case StylePlainText, "":
		return PlainText(&buf)
	}
	return nil, errors.Errorf("[Markdown] unknown style %q", opts.Style)
}

// PlainText flattens an HTML fragment. Headings keep their "#" markers,
// list items get "* " bullets, links keep only their text.
func PlainText(r *bytes.Buffer) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", errors.Wrap(err, "parse html failed")
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if strings.TrimSpace(n.Data) != "" || !strings.Contains(n.Data, "\n") {
				sb.WriteString(n.Data)
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				sb.WriteString(strings.Repeat("#", int(n.Data[1]-'0')) + " ")
			case "li":
				sb.WriteString("  * ")
			case "br":
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "pre", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "table":
				sb.WriteString("\n\n")
			case "li", "tr":
				sb.WriteString("\n")
			case "td", "th":
				sb.WriteString(" | ")
			}
		}
	}
	walk(doc)

	lines := strings.Split(sb.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimRight(line, " |")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.Trim(strings.Join(out, "\n"), "\n") + "\n", nil
}

func init() {
	Register(&Text{})
	Register(&Markdown{})
}
