package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/duo/pkg/client"
	"github.com/xhad/duo/pkg/page"
)

// terminal renders the page on a line-oriented console. Streamed answers
// arrive as the full text so far; only the new suffix is printed.
type terminal struct {
	out io.Writer

	mu      sync.Mutex
	spinner *spinner
	printed string
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) Alert(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinner()
	fmt.Fprintln(t.out, color.YellowString("! %s", msg))
}

func (t *terminal) SetUploadStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinner()

	if text == page.MsgProcessing {
		t.spinner = startSpinner(t.out, "Uploading and indexing both PDFs...")
		return
	}
	if strings.HasPrefix(text, page.MsgUploadFailed) {
		fmt.Fprintln(t.out, color.RedString(text))
		return
	}
	fmt.Fprintln(t.out, text)
}

func (t *terminal) HideUpload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinner()
	fmt.Fprintln(t.out, color.GreenString("✓ Both PDFs indexed"))
}

func (t *terminal) ShowMain() {
	t.mu.Lock()
	defer t.mu.Unlock()
	color.New(color.FgCyan).Fprintln(t.out, "\nAsk about the two documents (type 'exit' to quit)")
}

func (t *terminal) SetAnswer(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if text == page.MsgThinking {
		t.stopSpinner()
		if t.printed != "" {
			fmt.Fprintln(t.out)
		}
		t.printed = ""
		t.spinner = startSpinner(t.out, "Thinking...")
		return
	}

	if t.spinner != nil {
		t.stopSpinner()
		color.New(color.FgCyan).Fprint(t.out, "Assistant: ")
	}

	if rest, ok := strings.CutPrefix(text, t.printed); ok && t.printed != "" {
		fmt.Fprint(t.out, rest)
	} else {
		if t.printed != "" {
			fmt.Fprintln(t.out)
		}
		fmt.Fprint(t.out, text)
	}
	t.printed = text
}

// endAnswer terminates the answer line once a turn is over.
func (t *terminal) endAnswer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinner()
	if t.printed != "" {
		fmt.Fprintln(t.out)
	}
	t.printed = ""
}

func (t *terminal) stopSpinner() {
	if t.spinner != nil {
		t.spinner.stop()
		t.spinner = nil
	}
}

type spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	wg   sync.WaitGroup
}

func startSpinner(out io.Writer, description string) *spinner {
	s := &spinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(color.CyanString(description)),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetWidth(20),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetRenderBlankState(true),
		),
		done: make(chan struct{}),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.bar.Add(1)
			}
		}
	}()

	return s
}

func (s *spinner) stop() {
	close(s.done)
	s.wg.Wait()
	s.bar.Clear()
}

// pathPicker selects the two PDFs from file paths.
type pathPicker struct {
	out     io.Writer
	paths   [2]string
	closers []io.Closer
}

func (p *pathPicker) Selected(slot page.Slot) (client.File, bool) {
	path := strings.TrimSpace(p.paths[slot])
	if path == "" {
		return client.File{}, false
	}

	f, closer, err := client.OpenFile(path)
	if err != nil {
		fmt.Fprintln(p.out, color.RedString("%s: %v", slot, err))
		return client.File{}, false
	}
	p.closers = append(p.closers, closer)
	return f, true
}

func (p *pathPicker) Close() {
	for _, c := range p.closers {
		c.Close()
	}
	p.closers = nil
}
