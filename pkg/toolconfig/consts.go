// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package toolconfig

const (
	ManifestFilename = "envshell.yaml"
	LockFilename     = "envshell.lock"

	ToolConfigFileName = "envtool-config.yaml"

	// PackageFilename is the per-entry descriptor inside the package store
	PackageFilename = "package.yaml"

	// CatalogFilename is the optional store-level candidate catalog.
	// A .xz compressed variant is recognized as well.
	CatalogFilename   = "index.yaml"
	CatalogXZFilename = "index.yaml.xz"
)
