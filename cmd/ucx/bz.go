package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// resolveBugIDs validates the --bug-id / --bug-ids-file pair and returns
// the target bug ids. The file format is one bug id per line; blank
// lines and #-comments are skipped.
func resolveBugIDs(bugID int64, file string) ([]int64, error) {
	if bugID > 0 && file != "" {
		return nil, fmt.Errorf("--bug-id and --bug-ids-file are mutually exclusive")
	}
	if bugID > 0 {
		return []int64{bugID}, nil
	}
	if file == "" {
		return nil, fmt.Errorf("one of --bug-id or --bug-ids-file is required")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bug id %q in %s", line, file)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no bug ids in %s", file)
	}
	return ids, nil
}
