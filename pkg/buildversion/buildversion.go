// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package buildversion

// To be populated at build-time, e.g.:
// go build -ldflags "-X 'envtool.dev/x/envtool/pkg/buildversion.ToolVersion=1.2.3'"
var (
	ToolVersion string
	Build       string
	BuildDate   string
)

type VersionInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	BuildDate string `json:"buildDate"`
}

func defaultUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func Get() VersionInfo {
	return VersionInfo{
		Version:   defaultUnknown(ToolVersion),
		Build:     defaultUnknown(Build),
		BuildDate: defaultUnknown(BuildDate),
	}
}
