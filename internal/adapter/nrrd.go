package adapter

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// readNRRDSegmentNames scans a Slicer segmentation NRRD header and
// returns the segment names, ordered by segment index. Only the text
// header is read; the voxel payload after the blank line is never
// touched.
//
// Segments appear as keyed fields of the form
//
//	Segment0_LabelValue:=1
//	Segment0_Name:=C3
//
// where the index before the underscore ties the fields of one segment
// together.
func readNRRDSegmentNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if !strings.HasPrefix(scanner.Text(), "NRRD") {
		return nil, fmt.Errorf("%s: not an NRRD file", path)
	}

	fields := make(map[string]string)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break // header ends at the first blank line
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		fields[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var bases []string
	for key := range fields {
		base, found := strings.CutSuffix(key, "_LabelValue")
		if found && strings.HasPrefix(base, "Segment") {
			bases = append(bases, base)
		}
	}
	sort.Strings(bases)

	var names []string
	for _, base := range bases {
		if name, ok := fields[base+"_Name"]; ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// splitHeaderLine parses one header line. Key-value pairs use
// "key:=value" (Slicer's keyed fields) or "key: value" (plain NRRD
// fields).
func splitHeaderLine(line string) (key, value string, ok bool) {
	if k, v, found := strings.Cut(line, ":="); found {
		return strings.TrimSpace(k), strings.TrimSpace(v), true
	}
	if k, v, found := strings.Cut(line, ": "); found {
		return strings.TrimSpace(k), strings.TrimSpace(v), true
	}
	return "", "", false
}
