// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package toolconfig

const envVarPrefix = "ENVTOOL_"

const (
	// HomeEnvVar
	// ENVTOOL_HOME is the absolute path to the `envtool` home directory
	HomeEnvVar = envVarPrefix + "HOME"

	// StorePathEnvVar
	// ENVTOOL_STORE overrides the package store directory that is scanned
	// for installed packages
	StorePathEnvVar = envVarPrefix + "STORE"

	// RecordCacheEnvVar
	// ENVTOOL_CACHE toggles the on-disk cache of resolved package records.
	// 	Default: false
	RecordCacheEnvVar = envVarPrefix + "CACHE"

	// ShellEnvVar
	// ENVTOOL_SHELL overrides the shell program launched by `envtool shell`.
	// 	Default: $SHELL, falling back to /bin/sh
	ShellEnvVar = envVarPrefix + "SHELL"

	// ManifestPathEnvVar
	// ENVTOOL_MANIFEST is a path to a directory containing envshell.yaml.
	// This allows running a command against a manifest without changing directory
	ManifestPathEnvVar = envVarPrefix + "MANIFEST"

	// HostFallbackEnvVar
	// ENVTOOL_HOST_FALLBACK toggles falling back to executables found on the
	// host PATH for packages that are missing from the store
	HostFallbackEnvVar = envVarPrefix + "HOST_FALLBACK"

	// LogLevelEnvVar
	// ENVTOOL_LOG_LEVEL sets the log level for the tool.
	// 	Default: info
	//  Possible values: info error warning fatal debug
	LogLevelEnvVar = envVarPrefix + "LOG_LEVEL"
)
