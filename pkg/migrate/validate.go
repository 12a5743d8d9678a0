package migrate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks every .sql file in dir: timestamped name, unique
// version, exactly one Up section followed by one Down section, and balanced
// StatementBegin/End blocks inside each.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := migrationNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, dup := versions[m[1]]; dup {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkAnnotations(body); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	return nil
}

func checkAnnotations(body []byte) error {
	var section string
	seenUp, seenDown, inStatement := false, false, false

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case annotationUp:
			if seenUp {
				return fmt.Errorf("line %d: second %q", line, annotationUp)
			}
			if seenDown {
				return errors.New("down section before up")
			}
			seenUp, section = true, "up"
		case annotationDown:
			if !seenUp {
				return errors.New("down section before up")
			}
			if seenDown {
				return fmt.Errorf("line %d: second %q", line, annotationDown)
			}
			if inStatement {
				return fmt.Errorf("line %d: Up section ends inside a statement block", line)
			}
			seenDown, section = true, "down"
		case annotationBegin:
			if section == "" || inStatement {
				return fmt.Errorf("line %d: unexpected %q", line, annotationBegin)
			}
			inStatement = true
		case annotationEnd:
			if !inStatement {
				return fmt.Errorf("line %d: %q without begin", line, annotationEnd)
			}
			inStatement = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case !seenUp:
		return fmt.Errorf("missing %q", annotationUp)
	case !seenDown:
		return fmt.Errorf("missing %q", annotationDown)
	case inStatement:
		return errors.New("unterminated statement block")
	}
	return nil
}
