// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package toolconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/goccy/go-yaml"

	"envtool.dev/x/envtool/pkg/utils"
)

type Config struct {
	HomePath string `yaml:"-"`

	CachePath string `yaml:"-"`
	// oci-layout dir containing cached resolved package records
	OciLayoutCache string `yaml:"-"`

	CacheLockFilePath string `yaml:"-"`

	// StorePath is the package store scanned for installed packages.
	// Relative values are resolved against the home directory.
	StorePath string `yaml:"store,omitempty"`

	// Shell launched by `envtool shell`
	Shell string `yaml:"shell,omitempty"`

	// HostFallback admits executables found on the host PATH as candidates
	// for packages missing from the store
	HostFallback bool `yaml:"host-fallback,omitempty"`

	// RecordCache enables the on-disk cache of resolved package records
	RecordCache bool `yaml:"record-cache,omitempty"`
}

func (c *Config) EnsureDirs() error {
	return utils.EnsureDirs(c.HomePath, c.StorePath, c.OciLayoutCache)
}

func Get() (*Config, error) {
	homePath, err := getHomePath()
	if err != nil {
		return nil, err
	}
	return GetWithCustomHome(homePath)
}

func GetWithCustomHome(homePath string) (*Config, error) {
	config := Config{}

	// envtool-config.yaml is optional
	configFilePath := filepath.Join(homePath, ToolConfigFileName)
	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		if fileInfo.IsDir() {
			return nil, fmt.Errorf("%q is directory and not a file", configFilePath)
		}

		bytes, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(bytes, &config); err != nil {
			return nil, err
		}
	}

	storePath, ok := os.LookupEnv(StorePathEnvVar)
	if ok {
		config.StorePath = storePath
	}
	if config.StorePath == "" {
		config.StorePath = filepath.Join(homePath, "store")
	} else {
		config.StorePath = utils.ResolvePath(homePath, config.StorePath)
	}

	shell, ok := os.LookupEnv(ShellEnvVar)
	if ok {
		config.Shell = shell
	}

	hostFallback, ok, err := utils.BoolEnvVar(HostFallbackEnvVar)
	if err != nil {
		return nil, err
	}
	if ok {
		config.HostFallback = hostFallback
	}

	recordCache, ok, err := utils.BoolEnvVar(RecordCacheEnvVar)
	if err != nil {
		return nil, err
	}
	if ok {
		config.RecordCache = recordCache
	}

	cacheDir := filepath.Join(homePath, "cache")
	config.HomePath = homePath
	config.CachePath = cacheDir
	config.OciLayoutCache = filepath.Join(cacheDir, "oci-layout")
	config.CacheLockFilePath = filepath.Join(cacheDir, ".lock")
	return &config, nil
}

func getHomePath() (string, error) {
	if v, ok := os.LookupEnv(HomeEnvVar); ok {
		return v, nil
	}

	return getAppUserDataDirectory("envtool")
}

func getAppUserDataDirectory(appName string) (string, error) {
	switch runtime.GOOS {
	case "windows":
		dir, ok := os.LookupEnv("APPDATA")
		if !ok {
			return "", fmt.Errorf("APPDATA environment variable is not set")
		}
		return filepath.Join(dir, appName), nil
	default:
		dir, ok := os.LookupEnv("HOME")
		if !ok {
			return "", fmt.Errorf("HOME environment variable is not set")
		}
		return filepath.Join(dir, "."+appName), nil
	}
}

// GetManifestAbsolutePath returns true if the tool was called in the scope of
// an envshell.yaml, along with its absolute path
func GetManifestAbsolutePath() (string, bool, error) {
	// ENVTOOL_MANIFEST env var takes precedence
	manifestDir, ok := os.LookupEnv(ManifestPathEnvVar)
	if ok {
		absolutePath, err := filepath.Abs(filepath.Join(manifestDir, ManifestFilename))
		if err != nil {
			return "", false, err
		}
		return absolutePath, true, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false, err
	}
	return findInAncestors(cwd, ManifestFilename)
}

// LockPathFor returns the path of the lockfile next to the given manifest
func LockPathFor(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), LockFilename)
}

func findInAncestors(startDir, filename string) (absolutePath string, ok bool, err error) {
	p, ok, err := doFindInAncestors(startDir, filename)
	if err != nil {
		return
	}
	if !ok {
		return "", false, nil
	}
	absolutePath, err = filepath.Abs(p)
	return
}

func doFindInAncestors(startDir, filename string) (string, bool, error) {
	f := filepath.Join(startDir, filename)

	info, err := os.Stat(f)
	if err == nil && !info.IsDir() {
		return f, true, nil
	}

	parent := filepath.Dir(startDir)
	if parent == startDir {
		return "", false, nil
	}

	return doFindInAncestors(parent, filename)
}
