package view

import (
	"testing"
	"time"
)

func TestPanelOnLoadState(t *testing.T) {
	p := NewPanel()
	if !p.Visible(UploadForm) {
		t.Fatal("upload form should be visible on load")
	}
	if p.Visible(DownloadForm) || p.Visible(UploadedTable) {
		t.Fatal("download form and uploaded table should be hidden on load")
	}
}

func TestPanelTogglesAreExclusive(t *testing.T) {
	p := NewPanel()

	p.ShowDownload()
	if p.Visible(UploadForm) || !p.Visible(DownloadForm) {
		t.Fatal("ShowDownload should show only the download form")
	}

	p.ShowUpload()
	if !p.Visible(UploadForm) || p.Visible(DownloadForm) {
		t.Fatal("ShowUpload should show only the upload form")
	}
}

func TestPanelUploadLifecycle(t *testing.T) {
	p := NewPanel()
	p.UploadStarted()

	if got := p.UploadProgress(512, 2048); got != "25%" {
		t.Fatalf("progress text = %s", got)
	}
	if got := p.UploadProgress(2047, 2048); got != "99%" {
		t.Fatalf("progress text = %s", got)
	}

	p.UploadDone(false)
	if p.Visible(UploadedTable) {
		t.Fatal("invalid upload should not reveal the uploaded table")
	}
	p.UploadDone(true)
	if !p.Visible(UploadedTable) {
		t.Fatal("valid upload should reveal the uploaded table")
	}

	p.UploadStarted()
	if p.Progress() != 0 {
		t.Fatalf("progress after restart = %d", p.Progress())
	}
}

func TestPercentBounds(t *testing.T) {
	cases := []struct {
		loaded, total int64
		want          int
	}{
		{0, 100, 0},
		{50, 0, 0},
		{150, 100, 100},
		{1, 3, 33},
	}
	for _, tc := range cases {
		if got := Percent(tc.loaded, tc.total); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.loaded, tc.total, got, tc.want)
		}
	}
}

func TestRefreshGateCooldown(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	gate := NewRefreshGate(RefreshCooldown, func() time.Time { return now })

	if !gate.TryRefresh() {
		t.Fatal("first refresh should be allowed")
	}
	if gate.Enabled() || gate.TryRefresh() {
		t.Fatal("refresh should be disabled during cooldown")
	}

	now = now.Add(14 * time.Second)
	if gate.TryRefresh() {
		t.Fatal("refresh allowed before cooldown elapsed")
	}

	now = now.Add(time.Second)
	if !gate.Enabled() || !gate.TryRefresh() {
		t.Fatal("refresh should be allowed once cooldown elapsed")
	}
}
