package proxy

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = `You are JL Assistant, the friendly website assistant for JL Software & Digital Systems.

JL Software builds websites, custom software systems, e-commerce and POS solutions, branding and design, and API integrations for small and growing businesses.

Answer questions about services, packages, pricing and timelines clearly and briefly. Use markdown lists when comparing options. When a visitor is ready to start, invite them to request a quotation from the Services page or to reach the team on WhatsApp. If you do not know something, say so and suggest contacting the team.`

// PromptSource supplies the system prompt prepended to every relayed
// conversation.
type PromptSource interface {
	SystemPrompt() string
}

// StaticPrompt is a fixed system prompt.
type StaticPrompt string

func (p StaticPrompt) SystemPrompt() string {
	return string(p)
}

// FilePrompt serves a system prompt read from a file and reloads it whenever
// the file changes. An empty or unreadable file keeps the last good prompt.
type FilePrompt struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu     sync.RWMutex
	prompt string

	done chan struct{}
}

// NewFilePrompt reads path and starts watching it.
func NewFilePrompt(path string, logger *slog.Logger) (*FilePrompt, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving prompt file: %w", err)
	}

	prompt, err := readPrompt(abs)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating prompt watcher: %w", err)
	}

	// Editors commonly replace files by rename, which drops a watch on the
	// file itself, so watch the directory and filter by name.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching prompt file: %w", err)
	}

	fp := &FilePrompt{
		path:    abs,
		watcher: watcher,
		logger:  logger,
		prompt:  prompt,
		done:    make(chan struct{}),
	}
	go fp.watch()

	return fp, nil
}

// SystemPrompt returns the current prompt.
func (p *FilePrompt) SystemPrompt() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prompt
}

// Close stops watching the file.
func (p *FilePrompt) Close() error {
	err := p.watcher.Close()
	<-p.done
	return err
}

func (p *FilePrompt) watch() {
	defer close(p.done)

	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != p.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			p.reload()

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("prompt watcher error", "error", err)
		}
	}
}

func (p *FilePrompt) reload() {
	prompt, err := readPrompt(p.path)
	if err != nil {
		p.logger.Warn("keeping previous system prompt", "path", p.path, "error", err)
		return
	}

	p.mu.Lock()
	changed := prompt != p.prompt
	p.prompt = prompt
	p.mu.Unlock()

	if changed {
		p.logger.Info("system prompt reloaded", "path", p.path, "chars", len(prompt))
	}
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("prompt file is empty")
	}
	return prompt, nil
}
