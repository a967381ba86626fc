package view

import (
	"strings"
	"sync"

	"github.com/connect-therapy/session-chat/internal/relay"
)

// HTMLView is an in-memory session page: element visibility, button labels,
// the message field and the rendered message table.
type HTMLView struct {
	mu      sync.RWMutex
	visible map[relay.Element]bool
	labels  map[relay.Element]string
	rows    []string
	input   string
}

var _ relay.View = (*HTMLView)(nil)

// NewHTMLView returns a page with every element visible, as markup loads.
func NewHTMLView() *HTMLView {
	return &HTMLView{
		visible: map[relay.Element]bool{
			relay.ElementControls:    true,
			relay.ElementWaitToJoin:  true,
			relay.ElementWaitForPeer: true,
			relay.ElementLoading:     true,
		},
		labels: make(map[relay.Element]string),
	}
}

func (v *HTMLView) SetVisible(el relay.Element, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[el] = visible
}

func (v *HTMLView) SetLabel(el relay.Element, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.labels[el] = label
}

func (v *HTMLView) AppendRow(sender, text string) {
	row := RowHTML(sender, text)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = append(v.rows, row)
}

func (v *HTMLView) InputValue() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.input
}

func (v *HTMLView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = ""
}

// Type replaces the message field's content.
func (v *HTMLView) Type(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = text
}

// Visible reports an element's visibility. Unknown elements are visible.
func (v *HTMLView) Visible(el relay.Element) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	visible, ok := v.visible[el]
	return !ok || visible
}

// Label returns a button's current label.
func (v *HTMLView) Label(el relay.Element) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.labels[el]
}

// Rows returns the rendered message rows.
func (v *HTMLView) Rows() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.rows...)
}

// TableHTML renders the whole message table.
func (v *HTMLView) TableHTML() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var b strings.Builder
	b.WriteString(`<table id="message-table">`)
	for _, r := range v.rows {
		b.WriteString(r)
	}
	b.WriteString(`</table>`)
	return b.String()
}
