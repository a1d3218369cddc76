// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import "strings"

// Injected via -ldflags at build time, e.g.
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.3"
var (
	Version   = "dev" // semantic version from git tags
	GitCommit = ""    // short git commit hash
	BuildTime = ""    // build timestamp in RFC3339 format
)

// Info bundles the build-time version information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// Get returns the version information for this build.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
}

// String renders the info as "v1.2.3 (abc1234, built 2026-01-30T12:00:00Z)".
func (i Info) String() string {
	var sb strings.Builder
	sb.WriteString(i.Version)

	var extras []string
	if i.GitCommit != "" {
		extras = append(extras, i.GitCommit)
	}
	if i.BuildTime != "" {
		extras = append(extras, "built "+i.BuildTime)
	}
	if len(extras) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(extras, ", "))
		sb.WriteString(")")
	}

	return sb.String()
}
