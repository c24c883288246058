package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadURLs reads a URL list file. Plain files hold one URL per line; blank
// lines and lines starting with '#' are skipped. Files ending in .yaml or .yml
// hold a list whose items are either URL strings or mappings with a url key.
func LoadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(f)
	default:
		return ParseLines(f)
	}
}

func ParseLines(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

type yamlEntry struct {
	URL string
}

func (e *yamlEntry) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		e.URL = n.Value
		return nil
	}
	var m struct {
		URL string `yaml:"url"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	e.URL = m.URL
	return nil
}

func parseYAML(r io.Reader) ([]string, error) {
	var entries []yamlEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	var urls []string
	for _, e := range entries {
		if u := strings.TrimSpace(e.URL); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
