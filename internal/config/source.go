package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ime-hub/postscrape/internal/deadletter"
)

// Source kinds.
const (
	KindFeed   = "rss"
	KindMarkup = "html"
	KindAPI    = "api"
)

const defaultMinDelay = 1000 * time.Millisecond

// Selectors are the CSS selectors used by markup sources. Only Item is
// meaningful without the others; missing selectors yield empty fields.
type Selectors struct {
	Item     string `json:"item" yaml:"item"`
	Title    string `json:"title" yaml:"title"`
	Link     string `json:"link" yaml:"link"`
	Date     string `json:"date" yaml:"date"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
	Tags     string `json:"tags" yaml:"tags"`
}

// RateLimit holds the per-source politeness settings.
type RateLimit struct {
	MinDelayMs int `json:"minDelayMs" yaml:"minDelayMs"`
}

// Source is one configured origin. Immutable for the duration of a run.
type Source struct {
	ID         string         `json:"id" yaml:"id"`
	Type       string         `json:"type" yaml:"type"` // rss | html | api
	URL        string         `json:"url" yaml:"url"`
	Selectors  *Selectors     `json:"selectors,omitempty" yaml:"selectors,omitempty"`
	Mapping    map[string]any `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	RateLimit  *RateLimit     `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	SourceName string         `json:"sourceName,omitempty" yaml:"sourceName,omitempty"`
	PostType   string         `json:"postType,omitempty" yaml:"postType,omitempty"`
}

// Name returns the display name, falling back to the id.
func (s *Source) Name() string {
	if s.SourceName != "" {
		return s.SourceName
	}
	return s.ID
}

// MinDelay returns the polite delay applied before fetching this source.
func (s *Source) MinDelay() time.Duration {
	if s.RateLimit != nil && s.RateLimit.MinDelayMs >= 0 {
		return time.Duration(s.RateLimit.MinDelayMs) * time.Millisecond
	}
	return defaultMinDelay
}

func (s *Source) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Type == "" {
		return errors.New("type is required")
	}
	if s.URL == "" {
		return errors.New("url is required")
	}
	return nil
}

// registry matches the object form of a config document: {"sources": [...]}.
type registry struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// LoadSources reads a source configuration file. The document may be a
// top-level list of sources or an object with a "sources" key; the format is
// chosen by file extension (.yaml/.yml, anything else is JSON).
func LoadSources(path string) ([]Source, *deadletter.Failure) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, deadletter.New(deadletter.KindConfigMissing,
			"소스 설정 파일을 찾을 수 없습니다.", fmt.Sprintf("no config at %s", path))
	}

	sources, err := decodeSources(raw, filepath.Ext(path))
	if err != nil {
		return nil, deadletter.New(deadletter.KindConfigInvalid,
			"소스 설정 형식이 올바르지 않습니다.", err.Error())
	}
	if len(sources) == 0 {
		return nil, deadletter.New(deadletter.KindConfigInvalid,
			"소스 설정 형식이 올바르지 않습니다.", "'sources' must be a non-empty list")
	}
	for i := range sources {
		if err := sources[i].Validate(); err != nil {
			return nil, deadletter.New(deadletter.KindConfigInvalid,
				"소스 항목 파싱 중 오류", err.Error()).With("index", i)
		}
	}
	return sources, nil
}

func decodeSources(raw []byte, ext string) ([]Source, error) {
	yamlFile := strings.EqualFold(ext, ".yaml") || strings.EqualFold(ext, ".yml")

	var reg registry
	var list []Source
	if yamlFile {
		if err := yaml.Unmarshal(raw, &reg); err == nil && len(reg.Sources) > 0 {
			return reg.Sources, nil
		}
		if err := yaml.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	if err := json.Unmarshal(raw, &reg); err == nil && len(reg.Sources) > 0 {
		return reg.Sources, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Filter keeps only the sources whose id appears in the comma-separated
// allowlist. An empty allowlist keeps everything.
func Filter(sources []Source, allow string) []Source {
	only := make(map[string]bool)
	for _, id := range strings.Split(allow, ",") {
		if id = strings.TrimSpace(id); id != "" {
			only[id] = true
		}
	}
	if len(only) == 0 {
		return sources
	}
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if only[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
