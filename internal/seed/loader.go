// Package seed reads question catalogs from YAML files. A file is either
// markdown with YAML front matter describing one question, or plain YAML
// holding one question, a list of questions, or {questions: [...]}.
package seed

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"preflight/internal/model"
)

// step-07-team-size.md seeds index 6 when the question has no explicit index
var stepPrefix = regexp.MustCompile(`^step-(\d+)-`)

var frontMatterFence = []byte("---")

type document struct {
	Questions []model.QuestionDefinition `yaml:"questions"`
}

// LoadFS reads every .md, .yaml and .yml file under fsys in lexical path order
func LoadFS(fsys fs.FS) ([]model.QuestionDefinition, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(path.Ext(p)) {
		case ".md", ".yaml", ".yml":
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []model.QuestionDefinition
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		qs, err := ParseFile(p, data)
		if err != nil {
			return nil, err
		}
		out = append(out, qs...)
	}
	return out, nil
}

// ParseFile decodes the questions held by one file
func ParseFile(name string, data []byte) ([]model.QuestionDefinition, error) {
	var qs []model.QuestionDefinition
	if strings.EqualFold(path.Ext(name), ".md") {
		fm, ok := frontMatter(data)
		if !ok {
			return nil, fmt.Errorf("%s: no YAML front matter", name)
		}
		var q model.QuestionDefinition
		if err := yaml.Unmarshal(fm, &q); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		qs = []model.QuestionDefinition{q}
	} else {
		var err error
		if qs, err = parseYAML(data); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	for i := range qs {
		if qs[i].ID == "" {
			return nil, fmt.Errorf("%s: question %d has no id", name, i+1)
		}
		if qs[i].Prompt == "" {
			return nil, fmt.Errorf("%s: question %q has no prompt", name, qs[i].ID)
		}
		if qs[i].Index == 0 {
			qs[i].Index = indexFromID(qs[i].ID)
		}
	}
	return qs, nil
}

func parseYAML(data []byte) ([]model.QuestionDefinition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	node := root.Content[0]

	switch node.Kind {
	case yaml.SequenceNode:
		var qs []model.QuestionDefinition
		if err := node.Decode(&qs); err != nil {
			return nil, err
		}
		return qs, nil
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.Questions != nil {
			return doc.Questions, nil
		}
		var q model.QuestionDefinition
		if err := node.Decode(&q); err != nil {
			return nil, err
		}
		return []model.QuestionDefinition{q}, nil
	default:
		return nil, fmt.Errorf("expected a question, a list of questions or a questions key")
	}
}

// frontMatter returns the YAML between a leading --- fence and the next one
func frontMatter(data []byte) ([]byte, bool) {
	data = bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(data, frontMatterFence) {
		return nil, false
	}
	rest := data[len(frontMatterFence):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterFence...))
	if end < 0 {
		return nil, false
	}
	return rest[:end], true
}

func indexFromID(id string) int {
	m := stepPrefix.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0
	}
	return n - 1
}
