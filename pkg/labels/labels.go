// Package labels holds the per-family class vocabularies. The class index
// produced by a classifier is a position in one of these tables.
package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

// Entry is one class label. Pair entries carry the native script form and
// its romaji transliteration; single entries leave Romaji empty.
type Entry struct {
	Native string
	Romaji string
}

// IsPair reports whether the entry has a transliteration
func (e Entry) IsPair() bool {
	return e.Romaji != ""
}

// Resolve picks the string to display for the given language
func (e Entry) Resolve(lang types.Language) string {
	if e.IsPair() && lang == types.English {
		return e.Romaji
	}
	return e.Native
}

func (e Entry) String() string {
	if e.IsPair() {
		return e.Native + " (" + e.Romaji + ")"
	}
	return e.Native
}

// UnmarshalYAML accepts either a scalar or a two-element sequence
func (e *Entry) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*e = Entry{Native: single}
		return nil
	}
	var pair []string
	if err := unmarshal(&pair); err != nil {
		return fmt.Errorf("label must be a string or a [native, romaji] pair: %w", err)
	}
	return e.fromPair(pair)
}

// MarshalYAML writes pairs as sequences and singles as scalars
func (e Entry) MarshalYAML() (interface{}, error) {
	if e.IsPair() {
		return []string{e.Native, e.Romaji}, nil
	}
	return e.Native, nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = Entry{Native: single}
		return nil
	}
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("label must be a string or a [native, romaji] pair: %w", err)
	}
	return e.fromPair(pair)
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.IsPair() {
		return json.Marshal([]string{e.Native, e.Romaji})
	}
	return json.Marshal(e.Native)
}

func (e *Entry) fromPair(pair []string) error {
	if len(pair) != 2 {
		return fmt.Errorf("label pair must have 2 elements, got %d", len(pair))
	}
	if pair[0] == "" {
		return fmt.Errorf("label pair has an empty native form")
	}
	*e = Entry{Native: pair[0], Romaji: pair[1]}
	return nil
}

// Table is the ordered vocabulary of one family. It is read-only once loaded.
type Table struct {
	Family  types.Family `json:"family" yaml:"family"`
	Entries []Entry      `json:"labels" yaml:"labels"`
}

// Len returns the number of classes N
func (t Table) Len() int {
	return len(t.Entries)
}

// Label returns the display string of class i, or "" when i is out of range
func (t Table) Label(i int, lang types.Language) string {
	if i < 0 || i >= len(t.Entries) {
		return ""
	}
	return t.Entries[i].Resolve(lang)
}

// Validate checks that the table is usable as a classifier vocabulary
func (t Table) Validate() error {
	if len(t.Entries) == 0 {
		return fmt.Errorf("label table for %q is empty", t.Family)
	}
	for i, e := range t.Entries {
		if strings.TrimSpace(e.Native) == "" {
			return fmt.Errorf("label %d of %q is empty", i, t.Family)
		}
	}
	return nil
}

// New builds a table from entries, mainly for tests and built-in vocabularies
func New(family types.Family, entries ...Entry) Table {
	return Table{Family: family, Entries: entries}
}

// Parse decodes a table. Documents may be a mapping with a "labels" key or a
// bare list. format is "json" or "yaml".
func Parse(data []byte, format string, family types.Family) (Table, error) {
	var t Table
	var err error
	switch format {
	case "json":
		if err = json.Unmarshal(data, &t); err != nil {
			t = Table{}
			err = json.Unmarshal(data, &t.Entries)
		}
	case "yaml":
		if err = yaml.Unmarshal(data, &t); err != nil {
			t = Table{}
			err = yaml.Unmarshal(data, &t.Entries)
		}
	default:
		return Table{}, fmt.Errorf("unsupported label format: %q", format)
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse labels: %w", err)
	}

	if t.Family == "" {
		t.Family = family
	}
	if family != "" && t.Family != family {
		return Table{}, fmt.Errorf("label file is for %q, expected %q", t.Family, family)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// LoadFile reads a table from disk. The format follows the file extension.
func LoadFile(path string, family types.Family) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read labels %s: %w", path, err)
	}
	t, err := Parse(data, FormatOf(path), family)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// FormatOf maps a file name to "yaml" for .yaml/.yml and "json" otherwise
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// Save writes a table to disk in the format implied by the file extension
func Save(path string, t Table) error {
	var data []byte
	var err error
	if FormatOf(path) == "yaml" {
		data, err = yaml.Marshal(t)
	} else {
		data, err = json.MarshalIndent(t, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write labels %s: %w", path, err)
	}
	return nil
}
