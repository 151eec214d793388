// Package output renders command output as styled text, markdown or JSON.
//
// Auto mode picks text when stdout is a terminal and markdown otherwise, so
// piped output stays readable and diffable.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mode is an output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// defaultWidth is used for wrapping when the terminal size is unknown.
const defaultWidth = 100

// ParseMode validates a mode name. "md" is accepted for markdown and the
// empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "text":
		return ModeText, nil
	case "markdown", "md":
		return ModeMarkdown, nil
	case "json":
		return ModeJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected auto, text, markdown or json)", s)
	}
}

// Renderer writes command output in one mode.
type Renderer struct {
	out     io.Writer
	errOut  io.Writer
	mode    Mode
	isTTY   bool
	width   int
	styles  *Styles
	printer *message.Printer
}

// NewRenderer creates a renderer. An unknown mode behaves like ModeAuto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if m, err := ParseMode(string(mode)); err == nil {
		mode = m
	} else {
		mode = ModeAuto
	}

	r := &Renderer{
		out:     out,
		errOut:  errOut,
		mode:    mode,
		width:   defaultWidth,
		printer: message.NewPrinter(language.English),
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.isTTY = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			r.width = min(w, defaultWidth)
		}
	}

	lr := lipgloss.NewRenderer(out)
	if r.isTTY && r.EffectiveMode() == ModeText {
		lr.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	r.styles = NewStyles(lr)

	return r
}

// rendererKey is used to store the renderer in context.
type rendererKey struct{}

// RendererKey returns the context key used for storing the renderer.
func RendererKey() any {
	return rendererKey{}
}

// FromContext returns the renderer stored by the root command, or nil.
func FromContext(ctx context.Context) *Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*Renderer); ok {
		return r
	}
	return nil
}

// EffectiveMode resolves ModeAuto against the output device.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether stdout is a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Width is the wrap width for prose.
func (r *Renderer) Width() int { return r.width }

// Styles returns the text-mode styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Writer returns the primary output.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the diagnostic output.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Println writes a line to the primary output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to the primary output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a header in the renderer's mode.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	style := r.styles.Header1
	if level > 1 {
		style = r.styles.Header2
	}
	r.Println(style.Render(text))
}

// Success writes a success line.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render("✓ " + msg))
}

// Warning writes a warning line to the diagnostic output.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("! "+msg))
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Wrap wraps prose to the renderer width.
func (r *Renderer) Wrap(s string) string {
	return r.styles.Body.Width(r.width).Render(s)
}
