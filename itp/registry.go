// Package itp loads Inspection and Test Plan checklist templates from YAML
// files. Site teams keep the templates in a directory next to the service;
// the directory is watched so edits land without a restart.
package itp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/buildgrid/sitewise/models"
)

// templateFile is the on-disk YAML shape.
type templateFile struct {
	Name  string           `yaml:"name"`
	Trade string           `yaml:"trade"`
	Items []models.ItpItem `yaml:"items"`
}

// LoadFile parses a single template file.
func LoadFile(path string) (models.ItpTemplate, error) {
	var tpl models.ItpTemplate

	raw, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("read template %s: %w", path, err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return tpl, fmt.Errorf("parse template %s: %w", path, err)
	}
	if tf.Name == "" {
		return tpl, fmt.Errorf("template %s has no name", path)
	}
	if len(tf.Items) == 0 {
		return tpl, fmt.Errorf("template %s has no items", path)
	}
	for i, item := range tf.Items {
		if item.Key == "" {
			return tpl, fmt.Errorf("template %s item %d has no key", path, i)
		}
		if item.Severity == "" {
			tf.Items[i].Severity = models.SeverityMedium
		}
	}

	tpl.Name = tf.Name
	tpl.Trade = tf.Trade
	tpl.Source = "file"
	if err := tpl.SetChecklist(tf.Items); err != nil {
		return tpl, err
	}
	return tpl, nil
}

// LoadDir parses every .yaml/.yml file in dir. Files that fail to parse are
// skipped and reported in the returned error list so one broken template does
// not take down the rest of the registry.
func LoadDir(dir string) ([]models.ItpTemplate, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read template dir %s: %w", dir, err)}
	}

	var templates []models.ItpTemplate
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		tpl, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		templates = append(templates, tpl)
	}
	return templates, errs
}
