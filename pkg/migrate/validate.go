package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
)

const (
	annotationUp             = "-- +goose Up"
	annotationDown           = "-- +goose Down"
	annotationStatementBegin = "-- +goose StatementBegin"
	annotationStatementEnd   = "-- +goose StatementEnd"
)

var (
	migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	// Snapshot tables run on sqlite and postgres alike.
	nonPortableTypeRe = regexp.MustCompile(`(?i)\b(JSONB|BIGSERIAL|SERIAL|TIMESTAMPTZ|BYTEA)\b`)
)

type migrationFile struct {
	name    string
	version string
	up      string
	down    string
}

// ValidateFS checks every .sql file under dir: file naming, unique versions,
// goose Up/Down sections in order, balanced statement blocks, and column
// types both sqlite and postgres accept.
func ValidateFS(fsys fs.FS, dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read file %q: %w", entry.Name(), err)
		}
		file, err := parseMigration(entry.Name(), string(raw))
		if err != nil {
			return err
		}
		if prev, ok := versions[file.version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", file.version, prev, file.name)
		}
		versions[file.version] = file.name

		if err := file.check(); err != nil {
			return err
		}
	}

	if len(versions) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	return nil
}

func parseMigration(name, body string) (migrationFile, error) {
	m := migrationNameRe.FindStringSubmatch(name)
	if m == nil {
		return migrationFile{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	upAt := strings.Index(body, annotationUp)
	if upAt < 0 {
		return migrationFile{}, fmt.Errorf("migration %q missing %q", name, annotationUp)
	}
	downAt := strings.Index(body, annotationDown)
	if downAt < 0 {
		return migrationFile{}, fmt.Errorf("migration %q missing %q", name, annotationDown)
	}
	if downAt < upAt {
		return migrationFile{}, fmt.Errorf("migration %q has Down before Up", name)
	}
	return migrationFile{
		name:    name,
		version: m[1],
		up:      body[upAt+len(annotationUp) : downAt],
		down:    body[downAt+len(annotationDown):],
	}, nil
}

func (f migrationFile) check() error {
	if strings.TrimSpace(stripComments(f.up)) == "" {
		return fmt.Errorf("migration %q has an empty Up section", f.name)
	}
	for section, sql := range map[string]string{"Up": f.up, "Down": f.down} {
		begins := strings.Count(sql, annotationStatementBegin)
		ends := strings.Count(sql, annotationStatementEnd)
		if begins != ends {
			return fmt.Errorf("migration %q %s section has %d StatementBegin and %d StatementEnd", f.name, section, begins, ends)
		}
		if match := nonPortableTypeRe.FindString(stripComments(sql)); match != "" {
			return fmt.Errorf("migration %q uses %s, which sqlite does not support", f.name, strings.ToUpper(match))
		}
	}
	return nil
}

func stripComments(sql string) string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
