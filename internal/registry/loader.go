package registry

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// mapperXML mirrors one XML mapper unit: a <mapper namespace="..."> root with
// statement child elements.
type mapperXML struct {
	XMLName    xml.Name       `xml:"mapper"`
	Namespace  string         `xml:"namespace,attr"`
	Statements []statementXML `xml:",any"`
}

// statementXML is one statement child element. The body is captured as raw
// inner XML so nested <if>/<foreach>/<include> markup survives untouched.
type statementXML struct {
	XMLName          xml.Name
	ID               string `xml:"id,attr"`
	DatabaseType     string `xml:"databaseType,attr"`
	UseGeneratedKeys string `xml:"useGeneratedKeys,attr"`
	KeyColumn        string `xml:"keyColumn,attr"`
	Body             string `xml:",innerxml"`
}

var elementKinds = map[string]Kind{
	"sql":    KindRaw,
	"select": KindSelect,
	"insert": KindInsert,
	"update": KindUpdate,
	"delete": KindDelete,
}

// Load parses one XML mapper unit and registers its statements. The whole
// unit loads or nothing does: XML errors, missing required attributes and
// duplicate ids abort the call without touching the store.
func (s *Store) Load(data []byte, source string) error {
	var unit mapperXML
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&unit); err != nil {
		return fmt.Errorf("%s: cannot parse mapper XML: %w", source, err)
	}
	if unit.Namespace == "" {
		return fmt.Errorf("%s: mapper element missing namespace attribute", source)
	}

	var stmts []*Statement
	for _, el := range unit.Statements {
		kind, ok := elementKinds[el.XMLName.Local]
		if !ok {
			// Unrecognised elements are skipped whole.
			continue
		}
		if el.ID == "" {
			return fmt.Errorf("%s: <%s> element missing id attribute in namespace %q",
				source, el.XMLName.Local, unit.Namespace)
		}
		stmts = append(stmts, &Statement{
			Namespace:        unit.Namespace,
			ID:               el.ID,
			Kind:             kind,
			DatabaseType:     el.DatabaseType,
			SQL:              strings.TrimSpace(el.Body),
			UseGeneratedKeys: truthy(el.UseGeneratedKeys),
			KeyColumn:        el.KeyColumn,
		})
	}

	return s.register(unit.Namespace, stmts, source)
}

// truthy interprets the XML attribute convention for booleans.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// LoadGlob loads every mapper file matching the filesystem glob pattern.
// Files load concurrently; each file is atomic per Load, and the first error
// stops the remaining work.
func (s *Store) LoadGlob(pattern string) error {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("cannot expand mapper pattern %q: %w", pattern, err)
	}

	var g errgroup.Group
	for _, path := range paths {
		path := path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("cannot read mapper file: %w", err)
			}
			return s.Load(data, path)
		})
	}
	return g.Wait()
}

// LoadFS loads mapper files from an fs.FS, typically an embed.FS carrying the
// XML alongside the binary. Patterns follow fs.Glob syntax and default to
// every .xml file in the tree.
func (s *Store) LoadFS(fsys fs.FS, patterns ...string) error {
	if len(patterns) == 0 {
		patterns = []string{"*.xml", "*/*.xml"}
	}

	var g errgroup.Group
	for _, pattern := range patterns {
		paths, err := fs.Glob(fsys, pattern)
		if err != nil {
			return fmt.Errorf("cannot expand mapper pattern %q: %w", pattern, err)
		}
		for _, path := range paths {
			path := path
			g.Go(func() error {
				data, err := fs.ReadFile(fsys, path)
				if err != nil {
					return fmt.Errorf("cannot read mapper file: %w", err)
				}
				return s.Load(data, path)
			})
		}
	}
	return g.Wait()
}
