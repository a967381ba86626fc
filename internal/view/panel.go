package view

import (
	"fmt"
	"sync"
	"time"
)

// Panel elements of the file sharing area.
const (
	UploadForm      = "upload-form"
	DownloadForm    = "download-form"
	UploadedTable   = "uploaded-table"
	RefreshCooldown = 15 * time.Second
)

// Panel tracks the upload/download area. On load only the upload form shows.
type Panel struct {
	mu       sync.Mutex
	visible  map[string]bool
	progress int
}

// NewPanel returns the panel in its on-load state.
func NewPanel() *Panel {
	return &Panel{
		visible: map[string]bool{
			UploadForm:    true,
			DownloadForm:  false,
			UploadedTable: false,
		},
	}
}

// ShowUpload shows the upload form and hides the download form.
func (p *Panel) ShowUpload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[UploadForm] = true
	p.visible[DownloadForm] = false
}

// ShowDownload shows the download form and hides the upload form.
func (p *Panel) ShowDownload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[UploadForm] = false
	p.visible[DownloadForm] = true
}

// UploadStarted resets the progress bar.
func (p *Panel) UploadStarted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = 0
}

// UploadProgress records overall progress and returns the bar text.
func (p *Panel) UploadProgress(loaded, total int64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = Percent(loaded, total)
	return fmt.Sprintf("%d%%", p.progress)
}

// UploadDone reveals the uploaded files table when the server accepted the upload.
func (p *Panel) UploadDone(valid bool) {
	if !valid {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[UploadedTable] = true
}

// Visible reports an element's visibility.
func (p *Panel) Visible(el string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[el]
}

// Progress returns the last recorded percentage.
func (p *Panel) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Percent is loaded/total as a truncated percentage clamped to [0, 100].
func Percent(loaded, total int64) int {
	if total <= 0 || loaded <= 0 {
		return 0
	}
	if loaded >= total {
		return 100
	}
	return int(loaded * 100 / total)
}

// RefreshGate disables the download refresh control for a cooldown after
// each use so the list is not requested continuously.
type RefreshGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	until    time.Time
}

// NewRefreshGate returns a gate with the given cooldown; now may be nil.
func NewRefreshGate(cooldown time.Duration, now func() time.Time) *RefreshGate {
	if now == nil {
		now = time.Now
	}
	return &RefreshGate{cooldown: cooldown, now: now}
}

// TryRefresh reports whether a refresh may run now and, if so, starts the cooldown.
func (g *RefreshGate) TryRefresh() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.now()
	if t.Before(g.until) {
		return false
	}
	g.until = t.Add(g.cooldown)
	return true
}

// Enabled reports whether the refresh control is clickable.
func (g *RefreshGate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.now().Before(g.until)
}
