package gallery

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
)

// DirRoster lists students as the sub-directories of the enrolment directory.
// The directory is read on every call, so new students show up without a restart.
type DirRoster struct {
	Dir string
}

// Names returns the student names, sorted.
func (r DirRoster) Names(ctx context.Context) ([]string, error) {
	return listStudents(r.Dir)
}

func listStudents(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading faces directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
