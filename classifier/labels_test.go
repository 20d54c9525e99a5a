package classifier

import (
	"errors"
	"testing"
)

func TestLoadLabels(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		classes    int
		want       []string
		wantPadded int
	}{
		{"exact", "cat\ndog\n", 2, []string{"cat", "dog"}, 0},
		{"short file padded", "cat\n", 3, []string{"cat", "class_1", "class_2"}, 2},
		{"extra lines ignored", "cat\ndog\nbird\n", 2, []string{"cat", "dog"}, 0},
		{"trailing blank lines", "cat\ndog\n\n\n", 3, []string{"cat", "dog", "class_2"}, 1},
		{"crlf", "cat\r\ndog\r\n", 2, []string{"cat", "dog"}, 0},
		{"empty file", "", 2, []string{"class_0", "class_1"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "labels.list", tt.content)
			table, padded, err := LoadLabels(path, tt.classes)
			if err != nil {
				t.Fatalf("LoadLabels() error = %v", err)
			}
			if padded != tt.wantPadded {
				t.Errorf("padded = %d, want %d", padded, tt.wantPadded)
			}
			if table.Len() != tt.classes {
				t.Fatalf("Len() = %d, want %d", table.Len(), tt.classes)
			}
			for id, want := range tt.want {
				got, err := table.Name(id)
				if err != nil || got != want {
					t.Errorf("Name(%d) = %q, %v; want %q", id, got, err, want)
				}
			}
		})
	}
}

func TestLoadLabels_Missing(t *testing.T) {
	if _, _, err := LoadLabels(t.TempDir()+"/none.list", 2); err == nil {
		t.Fatal("LoadLabels() expected error for missing file")
	}
}

func TestLabelTable_OutOfRange(t *testing.T) {
	table, _ := NewLabelTable([]string{"a", "b"}, 2)
	for _, id := range []int{-1, 2, 1000} {
		if _, err := table.Name(id); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Name(%d) error = %v, want ErrOutOfRange", id, err)
		}
	}
}
