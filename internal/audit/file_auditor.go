package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

var _ Auditor = (*FileAuditor)(nil)

// FileAuditor appends events to a file as JSON lines. Writes are serialized
// behind the mutex; handlers audit concurrently.
type FileAuditor struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// NewFileAuditor opens (or creates, mode 0600) the sink file for appending.
func NewFileAuditor(path string) (*FileAuditor, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %q: %w", path, err)
	}
	return &FileAuditor{
		path: path,
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

func (f *FileAuditor) Log(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enc.Encode(event); err != nil {
		return fmt.Errorf("writing audit event to %q: %w", f.path, err)
	}
	return nil
}

func (f *FileAuditor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
