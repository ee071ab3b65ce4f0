//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const schemaGlob = "internal/schemafile/*.yaml"

// Stats prints Go line counts, split by package, and the number of
// declarations in the bundled schema files as one JSON object.
func Stats() error {
	var prod, test int
	perPackage := make(map[string]int)

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch path {
			case "vendor", ".git", "magefiles", binaryDir:
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), "_") && path != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		perPackage[filepath.ToSlash(filepath.Dir(path))] += n
		return nil
	})
	if err != nil {
		return err
	}

	decls, err := countSchemaDeclarations(schemaGlob)
	if err != nil {
		return err
	}

	line, err := json.Marshal(struct {
		Prod     int            `json:"go_loc_prod"`
		Test     int            `json:"go_loc_test"`
		Total    int            `json:"go_loc"`
		Packages map[string]int `json:"go_loc_by_package"`
		Schema   map[string]int `json:"schema_declarations"`
	}{prod, test, prod + test, perPackage, decls})
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

// countSchemaDeclarations totals the entries of each top-level list in the
// schema files matching pattern (types, attributes, associations and so on).
func countSchemaDeclarations(pattern string) (map[string]int, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc map[string]yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for key, node := range doc {
			if node.Kind == yaml.SequenceNode {
				totals[key] += len(node.Content)
			}
		}
	}
	return totals, nil
}
