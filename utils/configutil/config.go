// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package configutil loads cmd/swarmd's YAML configuration, following a
// chain of "extends: <base file>" references from a leaf config up to its
// base before applying each one in order, and validating the merged result.
package configutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ErrCycleRef is returned when a chain of "extends" references loops back
// on itself.
var ErrCycleRef = errors.New("cyclic reference in configuration extends detected")

// ValidationError wraps the field-level errors produced by validator.v2.
type ValidationError struct {
	errs validator.ErrorMap
}

func newValidationError(err error) ValidationError {
	if em, ok := err.(validator.ErrorMap); ok {
		return ValidationError{errs: em}
	}
	return ValidationError{errs: validator.ErrorMap{"_": validator.ErrorArray{err}}}
}

// Error implements the error interface.
func (v ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s", map[string]validator.ErrorArray(v.errs))
}

// ErrForField returns the validation errors recorded against field, or nil
// if field passed validation.
func (v ValidationError) ErrForField(field string) validator.ErrorArray {
	return v.errs[field]
}

// Load resolves filename's "extends" chain (base file first) and merges
// each file's YAML into config in order, then validates the final result.
func Load(filename string, config interface{}) error {
	filenames, err := resolveExtends(filename, readExtendsFromFile)
	if err != nil {
		return fmt.Errorf("resolve config extends chain: %s", err)
	}
	return loadFiles(config, filenames)
}

// loadFiles unmarshals each file in filenames into config in order, so a
// later file's explicit keys override an earlier file's, while keys a later
// file omits keep whatever an earlier file set. Validates once, after every
// file has been applied.
func loadFiles(config interface{}, filenames []string) error {
	for _, fn := range filenames {
		data, err := os.ReadFile(fn)
		if err != nil {
			return fmt.Errorf("read config %s: %s", fn, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("unmarshal config %s: %s", fn, err)
		}
	}
	if err := validator.Validate(config); err != nil {
		return newValidationError(err)
	}
	return nil
}

// resolveExtends walks fpath's "extends" chain via readExtends, returning
// the chain ordered from the root base file to fpath itself. A relative
// extends value is resolved against the directory of the file that named
// it. Returns ErrCycleRef if the chain loops.
func resolveExtends(fpath string, readExtends func(filename string) (string, error)) ([]string, error) {
	visited := map[string]bool{fpath: true}
	chain := []string{fpath}

	current := fpath
	for {
		parent, err := readExtends(current)
		if err != nil {
			return nil, err
		}
		if parent == "" {
			return chain, nil
		}
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(filepath.Dir(current), parent)
		}
		if visited[parent] {
			return nil, ErrCycleRef
		}
		visited[parent] = true
		chain = append([]string{parent}, chain...)
		current = parent
	}
}

func readExtendsFromFile(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	var head struct {
		Extends string `yaml:"extends"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return "", err
	}
	return head.Extends, nil
}
