package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"
	"github.com/elee1766/gemchat/src/history"
	"github.com/elee1766/gemchat/src/theme"
	"github.com/mattn/go-isatty"
)

// isTerminal reports whether w is a terminal that takes ANSI colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeJSON writes v indented, highlighted when w is a terminal.
func writeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}

	if !isTerminal(w) {
		_, err := w.Write(buf.Bytes())
		return err
	}
	_, err := io.WriteString(w, highlight(buf.String(), "json"))
	return err
}

// highlight colors code for a 256 color terminal. It returns code unchanged
// when tokenising fails.
func highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// transcriptPrinter prints turns as labelled blocks.
type transcriptPrinter struct {
	styles theme.Styles
	// width truncates each content line; 0 means no limit
	width int
	color bool
}

func newTranscriptPrinter(w io.Writer, width int) *transcriptPrinter {
	return &transcriptPrinter{
		styles: theme.NewStyles(theme.Current()),
		width:  width,
		color:  isTerminal(w),
	}
}

func (p *transcriptPrinter) label(role history.Role) string {
	text := "🧑 You"
	if role == history.RoleBot {
		text = "🤖 Bot"
	}
	if !p.color {
		return text
	}
	return p.styles.Role(role).Render(text)
}

func (p *transcriptPrinter) content(line string) string {
	if p.width > 0 {
		line = ansi.Truncate(line, p.width, "…")
	}
	if !p.color {
		return "  " + line
	}
	return p.styles.Content.Render(line)
}

func (p *transcriptPrinter) muted(text string) string {
	if !p.color {
		return text
	}
	return p.styles.Muted.Render(text)
}

// Print writes turns to w separated by blank lines.
func (p *transcriptPrinter) Print(w io.Writer, turns []history.Turn) {
	for i, t := range turns {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, p.label(t.Role))
		for _, line := range strings.Split(t.Content, "\n") {
			fmt.Fprintln(w, p.content(line))
		}
	}
}
