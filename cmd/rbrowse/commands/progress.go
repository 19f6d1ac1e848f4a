package commands

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/slok/rbrowse/internal/model"
)

// progressBar renders the aggregated task progress. Render is called from the
// interactive context only.
type progressBar struct {
	w       io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgressBar(w io.Writer, enabled bool) *progressBar {
	return &progressBar{w: w, enabled: enabled && w != nil}
}

// Render shows the progress, a hidden progress removes the bar.
func (p *progressBar) Render(pr model.Progress) {
	if !p.enabled {
		return
	}

	if !pr.Visible {
		p.Close()
		return
	}

	if p.bar == nil {
		p.bar = progressbar.NewOptions(pr.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("tasks"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	// The batch grows while tasks are being submitted.
	p.bar.ChangeMax(pr.Total)
	_ = p.bar.Set(pr.Completed)
}

// Close removes the bar if there is one.
func (p *progressBar) Close() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
