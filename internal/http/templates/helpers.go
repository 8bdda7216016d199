package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// RawHTML returns a templ component that writes the provided HTML without escaping.
func RawHTML(html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := io.WriteString(w, html)
		return err
	})
}

func footerOrDefault(note string) string {
	if note == "" {
		return DefaultFooterNote
	}
	return note
}

func pageCountLabel(count int) string {
	if count == 1 {
		return "1 page"
	}
	return strconv.Itoa(count) + " pages"
}
