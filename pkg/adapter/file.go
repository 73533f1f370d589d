package adapter

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// FileAdapter persists policy lines to a CSV file on disk, one line per
// row: the first field is the line's type token ("p", "g", ...), the rest
// are its values. Leading/trailing whitespace around each field is
// trimmed on load, matching the policy CSV format's tolerance for
// "p, alice, data1, read"-style spacing.
type FileAdapter struct {
	path string
}

// NewFileAdapter returns a FileAdapter backed by the file at path. The file
// need not exist yet; LoadPolicies on a missing file returns an empty set,
// and SavePolicies creates it.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// LoadPolicies reads every line from the backing file.
func (a *FileAdapter) LoadPolicies() ([]Line, error) {
	f, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "file adapter: open")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var lines []Line
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "file adapter: parse")
		}
		if len(record) == 0 {
			continue
		}
		values := make([]string, len(record)-1)
		for i, v := range record[1:] {
			values[i] = strings.TrimSpace(v)
		}
		lines = append(lines, Line{Type: strings.TrimSpace(record[0]), Values: values})
	}
	return lines, nil
}

// AddPolicy appends line to the backing file.
func (a *FileAdapter) AddPolicy(line Line) error {
	existing, err := a.LoadPolicies()
	if err != nil {
		return err
	}
	return a.SavePolicies(append(existing, line))
}

// RemovePolicy removes every line structurally equal to line.
func (a *FileAdapter) RemovePolicy(line Line) error {
	existing, err := a.LoadPolicies()
	if err != nil {
		return err
	}
	var kept []Line
	for _, l := range existing {
		if lineEqual(l, line) {
			continue
		}
		kept = append(kept, l)
	}
	return a.SavePolicies(kept)
}

// RemoveFilteredPolicy removes every line of lineType whose value at
// fieldIndex is one of values.
func (a *FileAdapter) RemoveFilteredPolicy(lineType string, fieldIndex int, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	existing, err := a.LoadPolicies()
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(values))
	for _, v := range values {
		want[v] = true
	}

	var kept []Line
	for _, l := range existing {
		if l.Type == lineType && fieldIndex >= 0 && fieldIndex < len(l.Values) && want[l.Values[fieldIndex]] {
			continue
		}
		kept = append(kept, l)
	}
	return a.SavePolicies(kept)
}

// SavePolicies overwrites the backing file with lines in full.
func (a *FileAdapter) SavePolicies(lines []Line) error {
	f, err := os.Create(a.path)
	if err != nil {
		return errors.Wrap(err, "file adapter: create")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, l := range lines {
		record := append([]string{l.Type}, l.Values...)
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "file adapter: write")
		}
	}
	w.Flush()
	return w.Error()
}

func lineEqual(a, b Line) bool {
	if a.Type != b.Type || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return false
		}
	}
	return true
}
