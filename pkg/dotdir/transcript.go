package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jlsoftware/jlsite/pkg/llm"
)

const (
	transcriptFile = "transcript.json"
)

// SavedTranscript is a terminal chat conversation persisted between runs so
// "jlsite chat --resume" can pick it up again.
type SavedTranscript struct {
	SavedAt  time.Time     `json:"saved_at"`
	Endpoint string        `json:"endpoint,omitempty"`
	Messages []llm.Message `json:"messages"`
}

// LoadTranscript loads .jlsite/transcript.json. Returns nil, nil when no
// transcript has been saved.
func (m *Manager) LoadTranscript(overrideDir string) (*SavedTranscript, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, transcriptFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	saved := &SavedTranscript{}
	if err := json.Unmarshal(data, saved); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}

	for i, msg := range saved.Messages {
		if !msg.Role.Valid() {
			return nil, fmt.Errorf("parsing transcript: message %d has invalid role %q", i, msg.Role)
		}
	}

	return saved, nil
}

// SaveTranscript writes .jlsite/transcript.json.
func (m *Manager) SaveTranscript(saved *SavedTranscript, overrideDir string) error {
	if saved == nil {
		return errors.New("cannot save nil transcript")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, transcriptFile), data, 0o600); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	return nil
}

// ClearTranscript removes the saved transcript. A missing file is not an
// error.
func (m *Manager) ClearTranscript(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, transcriptFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing transcript: %w", err)
	}

	return nil
}
