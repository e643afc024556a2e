// Package migrations reads versioned SQL migration files shared by the
// postgres and bigquery schema tools.
package migrations

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// Applied represents a migration that has already been applied
type Applied struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var filenamePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ParseFilename extracts the version and name of a migration file.
func ParseFilename(filename string) (version int, name string, ok bool) {
	matches := filenamePattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// Read loads every migration in dir, sorted by version. Each {{KEY}}
// placeholder in vars is substituted in the SQL. The checksum covers the
// file as written, so the same migration applied to another dataset keeps
// its checksum. Files that do not match the naming pattern are returned in
// skipped.
func Read(dir string, vars map[string]string) (migrations []Migration, skipped []string, err error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := ParseFilename(file.Name())
		if !ok {
			skipped = append(skipped, file.Name())
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, file.Name())
		}
		seen[version] = file.Name()

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}
		sql := strings.TrimSpace(string(content))
		if sql == "" {
			return nil, nil, fmt.Errorf("empty migration: %s", file.Name())
		}
		for k, v := range vars {
			sql = strings.ReplaceAll(sql, "{{"+k+"}}", v)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, skipped, nil
}

// Pending returns the migrations whose version is not in applied. A migration
// whose file changed after it was applied is reported as an error.
func Pending(all []Migration, applied []Applied) ([]Migration, error) {
	done := make(map[int]Applied, len(applied))
	for _, a := range applied {
		done[a.Version] = a
	}

	var pending []Migration
	for _, m := range all {
		a, ok := done[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if a.Checksum != "" && a.Checksum != m.Checksum {
			return nil, fmt.Errorf("migration %04d_%s changed after it was applied", m.Version, m.Name)
		}
	}
	return pending, nil
}
