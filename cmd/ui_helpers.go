package cmd

import (
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// phaseSpinner animates a single status line in a pterm area. The text can be
// replaced while it runs, which is how Genie phases are shown.
type phaseSpinner struct {
	mu   sync.Mutex
	text string
	area *pterm.AreaPrinter
	stop chan struct{}
	wg   sync.WaitGroup
}

// startPhaseSpinner hides the cursor and starts animating text. When no area can be
// started the spinner degrades to plain lines.
func startPhaseSpinner(text string) *phaseSpinner {
	s := &phaseSpinner{text: text, stop: make(chan struct{})}
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		pterm.Println(text)
		return s
	}
	s.area = area
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				i++
				s.mu.Lock()
				line := fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], s.text)
				s.mu.Unlock()
				area.Update(pterm.NewStyle(pterm.FgLightCyan).Sprint(line))
			case <-s.stop:
				return
			}
		}
	}()
	return s
}

// Update replaces the spinner text.
func (s *phaseSpinner) Update(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.area == nil && text != s.text {
		pterm.Println(text)
	}
	s.text = text
}

// Stop ends the animation, removes the line and shows the cursor again. It is safe
// to call more than once.
func (s *phaseSpinner) Stop() {
	if s.area == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	_ = s.area.Stop()
	s.area = nil
	cursor.Show()
}
