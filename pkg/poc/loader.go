package poc

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a single POC file. The file is tried as UTF-8
// first and re-decoded as GBK when that fails.
func LoadFile(path string) (*POC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read POC: %w", err)
	}
	return Parse(data)
}

// Parse decodes POC YAML. A leading host-language type tag line (for
// example "!!com.example.POCConfig") written by other editors is dropped.
func Parse(data []byte) (*POC, error) {
	p, err := parseUTF8(data)
	if err == nil {
		return p, nil
	}

	gbk, gbkErr := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if gbkErr != nil {
		return nil, err
	}
	p, gbkErr = parseUTF8(gbk)
	if gbkErr != nil {
		return nil, fmt.Errorf("%w (GBK retry: %v)", err, gbkErr)
	}
	return p, nil
}

func parseUTF8(data []byte) (*POC, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("failed to parse POC: not valid UTF-8")
	}
	data = stripTypeTag(data)

	var p POC
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse POC: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: missing required field: name", ErrInvalidPOC)
	}
	if p.Request == nil || strings.TrimSpace(p.Request.Method) == "" {
		return nil, fmt.Errorf("%w: missing required field: request.method", ErrInvalidPOC)
	}
	return &p, nil
}

func stripTypeTag(data []byte) []byte {
	trimmed := bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("!!")) {
		return data
	}
	nl := bytes.IndexByte(trimmed, '\n')
	if nl == -1 {
		return nil
	}
	line := bytes.TrimSpace(trimmed[:nl])
	if bytes.ContainsAny(line, " :") {
		// a tagged scalar or key, not a standalone type line
		return data
	}
	return trimmed[nl+1:]
}

// LoadDirectory loads every .yaml/.yml file directly inside dir, in
// file-name order. Files that fail to load are logged and skipped; files
// that load but fail Validate are logged and kept. It
// returns ErrNoPOCs when nothing usable was found.
func LoadDirectory(dir string, logger *slog.Logger) ([]*POC, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read POC directory: %w", err)
	}

	var pocs []*POC
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		p, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping POC file", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		if problems := Validate(p); len(problems) > 0 {
			logger.Warn("POC has problems",
				slog.String("file", name),
				slog.String("problems", strings.Join(problems, "; ")))
		}
		logger.Debug("loaded POC", slog.String("file", name), slog.String("name", p.Name))
		pocs = append(pocs, p)
	}

	if len(pocs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPOCs, dir)
	}
	return pocs, nil
}

// Validate returns the problems that make p meaningless as a check. An empty
// slice means p is usable. LoadDirectory logs the problems but still loads
// the file; the engine itself never calls Validate.
func Validate(p *POC) []string {
	var problems []string
	if p == nil {
		return []string{"POC is nil"}
	}
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name must not be empty")
	}
	if p.Request == nil {
		problems = append(problems, "request section is required")
	} else if strings.TrimSpace(p.Request.Method) == "" {
		problems = append(problems, "request.method must not be empty")
	}
	if p.Response == nil {
		problems = append(problems, "response section is required")
	} else if len(p.Response.SuccessIndicators) == 0 && p.Response.StatusCode == nil {
		problems = append(problems, "response needs successIndicators or statusCode")
	}
	return problems
}

// Marshal encodes p back to YAML, keeping header and param order.
func Marshal(p *POC) ([]byte, error) {
	return yaml.Marshal(p)
}
