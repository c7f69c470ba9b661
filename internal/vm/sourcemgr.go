package vm

import (
	"bufio"
	"os"
)

// SourceManager lazily loads and caches source file content by normalized
// path, splitting each file into lines on first request so source-mode
// tracing and breakpoint resolution never re-read a file twice.
type SourceManager struct {
	files map[string][]string
}

// NewSourceManager returns an empty SourceManager; files are loaded lazily.
func NewSourceManager() *SourceManager {
	return &SourceManager{files: map[string][]string{}}
}

// Line returns the 1-indexed source line from path, loading and caching the
// file on first access. ok is false if the file cannot be read or line is
// out of range.
func (s *SourceManager) Line(path string, line uint32) (string, bool) {
	lines, ok := s.files[path]
	if !ok {
		lines = s.load(path)
		s.files[path] = lines
	}
	if line == 0 || int(line) > len(lines) {
		return "", false
	}
	return lines[line-1], true
}

func (s *SourceManager) load(path string) []string {
	f, err := os.Open(normalizeSourcePath(path))
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
