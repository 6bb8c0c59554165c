package deadletter

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Sink appends failures to a line-delimited JSON log. Records are never
// overwritten; every run appends to the same file.
type Sink struct {
	Path string
}

func NewSink(path string) *Sink {
	return &Sink{Path: path}
}

// Append writes one failure as a JSONL line, flattening context keys into the
// top-level object next to kind/userMessage/logMessage.
func (s *Sink) Append(sourceID string, f *Failure) error {
	line := map[string]any{
		"kind":        string(f.Kind),
		"userMessage": f.UserMessage,
		"logMessage":  f.LogMessage,
	}
	if sourceID != "" {
		line["source"] = sourceID
	}
	for k, v := range f.Context {
		line[k] = v
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	_, err = out.Write(append(data, '\n'))
	return err
}
