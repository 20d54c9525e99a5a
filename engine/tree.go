package engine

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Tree is a label hierarchy. Parents[i] is the parent of node i, or -1 for
// a root. Every parent index is smaller than its child's index.
type Tree struct {
	Names   []string
	Parents []int
}

// LoadTree reads a hierarchy file with one "name parent" pair per line and
// checks that it covers exactly outputs nodes.
func LoadTree(path string, outputs int) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: tree file not found: %s", ErrTreeInvalid, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrTreeInvalid, err)
	}
	defer f.Close()

	tree := &Tree{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: %s:%d: expected \"name parent\"", ErrTreeInvalid, path, line)
		}
		parent, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: bad parent %q", ErrTreeInvalid, path, line, fields[1])
		}
		tree.Names = append(tree.Names, fields[0])
		tree.Parents = append(tree.Parents, parent)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTreeInvalid, err)
	}

	if len(tree.Parents) != outputs {
		return nil, fmt.Errorf("%w: %d nodes for %d outputs", ErrTreeInvalid, len(tree.Parents), outputs)
	}
	if err := ValidateParents(tree.Parents); err != nil {
		return nil, err
	}
	return tree, nil
}

// ValidateParents checks that every parent is -1 or precedes its child.
func ValidateParents(parents []int) error {
	for i, p := range parents {
		if p < -1 || p >= i {
			return fmt.Errorf("%w: node %d has parent %d", ErrTreeInvalid, i, p)
		}
	}
	return nil
}
