package classifier

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LabelTable maps class ids to display names. It is immutable once loaded.
type LabelTable struct {
	names []string
}

// NewLabelTable builds a table of exactly classes entries from names.
// Missing names are filled with "class_<id>"; extra names are dropped.
// It returns the number of placeholder entries.
func NewLabelTable(names []string, classes int) (*LabelTable, int) {
	table := make([]string, classes)
	n := copy(table, names)
	for i := n; i < classes; i++ {
		table[i] = fmt.Sprintf("class_%d", i)
	}
	return &LabelTable{names: table}, classes - n
}

// LoadLabels reads one name per line from path and builds a table of
// classes entries. Trailing blank lines are ignored.
func LoadLabels(path string, classes int) (*LabelTable, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}

	table, padded := NewLabelTable(names, classes)
	return table, padded, nil
}

// Len returns the number of classes.
func (t *LabelTable) Len() int {
	return len(t.names)
}

// Name returns the name of class id.
func (t *LabelTable) Name(id int) (string, error) {
	if id < 0 || id >= len(t.names) {
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, id, len(t.names))
	}
	return t.names[id], nil
}
