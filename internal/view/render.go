package view

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/connect-therapy/session-chat/internal/model/chat"
)

// Download links only keep an absolute http(s) href and target="_blank".
var linkPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	return p
}()

// Escape makes text safe to place inside an HTML element. The text itself is
// kept: markup characters are escaped, never removed.
func Escape(text string) string {
	return html.EscapeString(text)
}

// RowHTML renders one message log row: the sender label and the message text.
func RowHTML(sender, text string) string {
	return fmt.Sprintf("<tr><td><i>%s</i></td><td>%s</td></tr>", Escape(sender), Escape(text))
}

// MessageRowHTML renders a log entry.
func MessageRowHTML(msg chat.Message) string {
	return RowHTML(msg.Direction.Label(), msg.Text)
}

// DownloadRows renders one link row per downloadable file. Keys look like
// "<session>/<file name>" and the label is the second path segment. A URL
// that is not absolute http(s) loses its href, leaving a plain label.
func DownloadRows(files map[string]string) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]string, 0, len(keys))
	for _, k := range keys {
		anchor := fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`,
			Escape(files[k]), Escape(fileLabel(k)))
		rows = append(rows, "<tr><td>"+linkPolicy.Sanitize(anchor)+"</td></tr>")
	}
	return rows
}

func fileLabel(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return key
	}
	return parts[1]
}
