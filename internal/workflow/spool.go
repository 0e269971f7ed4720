package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// spool holds uploaded documents between submission and processing.
type spool struct {
	dir string
}

func (s *spool) path(id string) string {
	return filepath.Join(s.dir, id+".pdf")
}

func (s *spool) write(id string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ensure spool dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.part")
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close spool file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit spool file: %w", err)
	}
	return nil
}

func (s *spool) read(id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("read spooled document: %w", err)
	}
	return data, nil
}

func (s *spool) remove(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove spooled document: %w", err)
	}
	return nil
}
