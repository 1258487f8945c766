package tracker

import (
	"time"

	"github.com/samuelfneumann/progressbar"

	ts "flappyrl/timestep"
)

// Progress displays a progress bar on the terminal while an experiment
// runs, advancing by one on every tracked timestep. It saves no data;
// Save closes the bar.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates and returns a new *Progress Tracker for an
// experiment lasting maxSteps timesteps
func NewProgress(width, maxSteps int) Tracker {
	bar := progressbar.New(width, maxSteps, time.Second, false)
	bar.Display()
	return &Progress{bar: bar}
}

// Track advances the progress bar by one timestep. The timestep itself
// is ignored.
func (p *Progress) Track(ts.TimeStep) {
	p.bar.Increment()
}

// Save closes the progress bar
func (p *Progress) Save() {
	p.bar.Close()
}
