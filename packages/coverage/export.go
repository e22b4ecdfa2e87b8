package coverage

import (
	"github.com/tidwall/gjson"
)

// fileEntry looks up a file's entry in the tool's JSON export. Paths in the
// export are keys under "files", so the lookup goes through the map rather
// than a gjson path (file paths contain dots).
func fileEntry(export []byte, path string) (gjson.Result, bool) {
	files := gjson.GetBytes(export, "files")
	if !files.Exists() {
		return gjson.Result{}, false
	}

	var entry gjson.Result
	found := false
	files.ForEach(func(key, value gjson.Result) bool {
		if key.String() == path {
			entry = value
			found = true
			return false
		}
		return true
	})
	return entry, found
}

// missingLines extracts the uncovered line numbers from a file entry.
func missingLines(file gjson.Result) []int {
	lines := []int{}
	for _, v := range file.Get("missing_lines").Array() {
		lines = append(lines, int(v.Int()))
	}
	return lines
}
