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

// Package xlog configures the package-level zap logger used by swarmd's
// command-line entry points and any package that has not been handed an
// explicit *zap.SugaredLogger (most components take one as a constructor
// argument instead -- see piecestore.New, peerconn.Dial, node.New).
package xlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	logger = newDevelopmentLogger()
)

// Config selects production vs. development zap presets.
type Config struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func newDevelopmentLogger() *zap.SugaredLogger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return l.Sugar()
}

// ConfigureLogger replaces the package-level logger according to config.
func ConfigureLogger(config Config) error {
	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	if config.Level != "" {
		level, err := zap.ParseAtomicLevel(config.Level)
		if err != nil {
			return err
		}
		zapConfig.Level = level
	}
	l, err := zapConfig.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	logger = l.Sugar()
	mu.Unlock()
	return nil
}

// Sugar returns the current package-level logger.
func Sugar() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Infof logs at info level on the package-level logger.
func Infof(template string, args ...interface{}) { Sugar().Infof(template, args...) }

// Info logs at info level on the package-level logger.
func Info(args ...interface{}) { Sugar().Info(args...) }

// Warnf logs at warn level on the package-level logger.
func Warnf(template string, args ...interface{}) { Sugar().Warnf(template, args...) }

// Errorf logs at error level on the package-level logger.
func Errorf(template string, args ...interface{}) { Sugar().Errorf(template, args...) }

// Fatalf logs at error level and exits.
func Fatalf(template string, args ...interface{}) {
	Sugar().Errorf(template, args...)
	os.Exit(1)
}

// Fatal logs at error level and exits with status 1.
func Fatal(args ...interface{}) {
	Sugar().Error(args...)
	os.Exit(1)
}
