package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ime-hub/postscrape/internal/deadletter"
	"github.com/ime-hub/postscrape/internal/post"
)

// datePrefixLen is the length of the "YYYY-MM-DD-" filename prefix.
const datePrefixLen = 11

var datePrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// UpsertOutcome reports what one upsert did. Created is true only for brand
// new files; the run's id sequence advances on those alone.
type UpsertOutcome struct {
	Path    string
	Created bool
}

// FileStore persists canonical posts as one JSON file per post under Dir,
// named <date_published>-<slug>.json. The slug is the dedup identity: a file
// with the same slug under any date is the same post.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) EnsureDir() error {
	return os.MkdirAll(s.Dir, 0o755)
}

// FindExisting scans the output directory for a file matching
// <any-date>-<slug>.json and returns its path, or "" when none exists.
func (s *FileStore) FindExisting(slug string) string {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return ""
	}
	want := slug + ".json"
	for _, entry := range entries {
		name := entry.Name()
		if len(name) > datePrefixLen && datePrefixRe.MatchString(name) && name[datePrefixLen:] == want {
			return filepath.Join(s.Dir, name)
		}
	}
	return ""
}

// Upsert writes a new post file or merge-updates the existing one for the
// slug. Existing files keep their identity: only last_checked_at (always)
// and deadline (when the new document has one) change. In dry-run mode the
// destination path is computed without writing.
func (s *FileStore) Upsert(doc *post.Doc, slug, today string, dryRun bool) (UpsertOutcome, *deadletter.Failure) {
	if existing := s.FindExisting(slug); existing != "" {
		if f := s.refresh(existing, doc, today, dryRun); f != nil {
			return UpsertOutcome{}, f
		}
		return UpsertOutcome{Path: existing}, nil
	}

	path := filepath.Join(s.Dir, doc.DatePublished+"-"+slug+".json")
	if !dryRun {
		if err := writeJSONAtomic(path, doc); err != nil {
			return UpsertOutcome{}, deadletter.New(deadletter.KindWriteError,
				"게시물 저장 실패", err.Error()).With("path", path)
		}
	}
	return UpsertOutcome{Path: path, Created: true}, nil
}

// refresh merge-updates an already stored document, preserving every field
// other than last_checked_at and (optionally) deadline.
func (s *FileStore) refresh(path string, doc *post.Doc, today string, dryRun bool) *deadletter.Failure {
	raw, err := os.ReadFile(path)
	if err != nil {
		return deadletter.New(deadletter.KindWriteError,
			"기존 파일 갱신 실패", err.Error()).With("path", path)
	}
	stored := make(map[string]any)
	if err := json.Unmarshal(raw, &stored); err != nil {
		return deadletter.New(deadletter.KindWriteError,
			"기존 파일 갱신 실패", err.Error()).With("path", path)
	}

	stored["last_checked_at"] = today
	if doc.Deadline != "" {
		stored["deadline"] = doc.Deadline
	}

	if dryRun {
		return nil
	}
	if err := writeJSONAtomic(path, stored); err != nil {
		return deadletter.New(deadletter.KindWriteError,
			"기존 파일 갱신 실패", err.Error()).With("path", path)
	}
	return nil
}

// writeJSONAtomic writes to a temporary file and renames it into place so a
// crash never leaves a partial post behind.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
