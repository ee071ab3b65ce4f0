//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for modelgraph using Mage.
//
// Usage:
//
//	mage build             Compile the modelgraph binary to bin/
//	mage test:all          Run every test
//	mage test:unit         Run tests without the race detector and cache
//	mage test:cover        Run tests and print coverage per package
//	mage vet               Run go vet
//	mage lint              Run go vet and golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install modelgraph to GOPATH/bin
//	mage stats             Print Go line counts as JSON
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "modelgraph"
	binaryDir  = "bin"
	cmdDir     = "./cmd/modelgraph"
	modulePath = "github.com/mesh-intelligence/modelgraph"
)

// ldflags stamps the version from `git describe` into the binary when a
// tag is available.
func ldflags() string {
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		return ""
	}
	return "-X " + modulePath + "/internal/cli.Version=" + strings.TrimPrefix(version, "v")
}

// Build compiles the modelgraph binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if flags := ldflags(); flags != "" {
		args = append(args, "-ldflags", flags)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
