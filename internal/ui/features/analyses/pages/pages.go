package pages

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// datastarScript is the client runtime that applies SSE patches.
const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// htmlWriter writes markup and keeps the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// analysisURL is the refresh endpoint of an entry, safe inside a quoted
// datastar expression.
func analysisURL(name string) string {
	return "/analyses/" + strings.ReplaceAll(url.PathEscape(name), "'", "%27")
}

// Page renders the full HTML document.
func Page(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`)
		h.text(v.Title)
		h.raw(` - salesdash</title>`,
			`<link rel="stylesheet" href="/static/dashboard.css">`,
			`<script type="module" src="`, datastarScript, `"></script>`,
			`</head><body>`,
			`<div id="updates" data-init="@get('/updates')"></div>`)
		if h.err != nil {
			return h.err
		}
		if err := Dashboard(v).Render(ctx, w); err != nil {
			return err
		}
		h.raw(`</body></html>`)
		return h.err
	})
}

// Dashboard renders the patchable dashboard body.
func Dashboard(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<main id="dashboard"><header><h1>`)
		h.text(v.Title)
		h.raw(`</h1>`)
		if v.Goal != "" {
			h.raw(`<p class="goal"><strong>Analysis Goal:</strong> `)
			h.text(v.Goal)
			h.raw(`</p>`)
		}
		h.raw(`</header>`)
		if v.Banner != "" {
			h.raw(`<div class="banner" role="alert">`)
			h.text(v.Banner)
			h.raw(`</div>`)
		}
		if h.err != nil {
			return h.err
		}
		for _, s := range v.Sections {
			if err := Section(s).Render(ctx, w); err != nil {
				return err
			}
		}
		if v.RunID != "" {
			h.raw(`<footer>Run `)
			h.text(v.RunID)
			h.raw(fmt.Sprintf(` rendered in %s</footer>`, v.Duration.Round(time.Millisecond)))
		}
		h.raw(`</main>`)
		return h.err
	})
}

// Section renders one catalog entry.
func Section(s SectionView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section id="`)
		h.text(s.ID())
		h.raw(`" class="entry `)
		h.text(s.Kind)
		h.raw(`"><h2>`)
		h.text(s.Title)
		h.raw(`</h2><button type="button" data-on:click="@get('`, templ.EscapeString(analysisURL(s.Name)), `')">Refresh</button>`)
		if s.Goal != "" {
			h.raw(`<p class="goal"><strong>Analysis Goal:</strong> `)
			h.text(s.Goal)
			h.raw(`</p>`)
		}

		if s.Error != "" {
			h.raw(`<div class="error" role="alert">`)
			h.text(s.Error)
			h.raw(`</div></section>`)
			return h.err
		}

		writeTable(h, s)

		if s.Notice != "" {
			h.raw(`<p class="notice">`)
			h.text(s.Notice)
			h.raw(`</p>`)
		}
		if s.Result != "" {
			h.raw(`<p class="result"><strong>Analysis Result:</strong> `)
			h.text(s.Result)
			h.raw(`</p>`)
		}
		h.raw(`</section>`)
		return h.err
	})
}

func writeTable(h *htmlWriter, s SectionView) {
	if len(s.Rows) == 0 {
		h.raw(`<p class="rows">(0 rows)</p>`)
		return
	}

	h.raw(`<div class="table"><table><thead><tr>`)
	for _, c := range s.Columns {
		h.raw(`<th>`)
		h.text(c)
		h.raw(`</th>`)
	}
	h.raw(`</tr></thead><tbody>`)
	for _, row := range s.Rows {
		h.raw(`<tr>`)
		for _, c := range row {
			switch {
			case c.Null:
				h.raw(`<td class="null">`)
			case c.Numeric:
				h.raw(`<td class="num">`)
			default:
				h.raw(`<td>`)
			}
			h.text(c.Text)
			h.raw(`</td>`)
		}
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table></div>`)

	if s.RowCount == 1 {
		h.raw(`<p class="rows">(1 row)</p>`)
	} else {
		h.raw(fmt.Sprintf(`<p class="rows">(%d rows)</p>`, s.RowCount))
	}
}
