/*
DESCRIPTION
  file.go provides loading of configuration variables from a YAML file.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ausocean/utils/logging"
)

// Load reads a YAML mapping of variable names to values from path, in the
// form accepted by Update. Sequence values are joined with commas, so
//
//	PhoneMask: [0, 2, 3]
//
// is equivalent to PhoneMask: "0,2,3".
func Load(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return parse(b)
}

func parse(b []byte) (map[string]string, error) {
	var doc map[string]yaml.Node
	err := yaml.Unmarshal(b, &doc)
	if err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	vars := make(map[string]string, len(doc))
	for k, n := range doc {
		switch n.Kind {
		case yaml.ScalarNode:
			vars[k] = n.Value
		case yaml.SequenceNode:
			elems := make([]string, len(n.Content))
			for i, e := range n.Content {
				if e.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("config variable %s: nested values are not supported", k)
				}
				elems[i] = e.Value
			}
			vars[k] = strings.Join(elems, ",")
		default:
			return nil, fmt.Errorf("config variable %s: unsupported value", k)
		}
	}
	return vars, nil
}

// Assemble returns a validated Config for l built from, in increasing
// precedence, the config file at path (if path is not empty), the input
// described by arg (see InputVars, ignored if empty) and vars.
func Assemble(l logging.Logger, path, arg string, vars map[string]string) (*Config, error) {
	c := &Config{Logger: l}
	if path != "" {
		fv, err := Load(path)
		if err != nil {
			return nil, err
		}
		c.Update(fv)
	}
	if arg != "" {
		c.Update(InputVars(arg))
	}
	c.Update(vars)
	err := c.Validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}
