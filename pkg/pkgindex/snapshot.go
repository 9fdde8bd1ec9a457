// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package pkgindex

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"

	"envtool.dev/x/envtool/pkg/platform"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

// Snapshot is the point-in-time view of all resolvable candidates: installed
// store entries, catalog entries, and (when enabled) host PATH lookups.
// Resolution only ever sees an explicit Snapshot, never the live filesystem.
type Snapshot struct {
	hostFallback bool
	hostPath     string

	// name -> candidates sorted ascending by version
	records map[string][]*PackageRecord

	// memoized host lookups, nil entry = known miss
	hostRecords map[string]*PackageRecord
}

type LoadOpts struct {
	StorePath    string
	HostFallback bool

	// HostPath overrides the PATH value searched for host candidates.
	// Defaults to the process's PATH.
	HostPath string
}

func Load(opts LoadOpts) (*Snapshot, error) {
	s := &Snapshot{
		hostFallback: opts.HostFallback,
		hostPath:     opts.HostPath,
		records:      map[string][]*PackageRecord{},
		hostRecords:  map[string]*PackageRecord{},
	}
	if s.hostPath == "" {
		s.hostPath = os.Getenv("PATH")
	}

	if err := s.scanStore(opts.StorePath); err != nil {
		return nil, err
	}
	s.loadCatalog(opts.StorePath)

	for _, rs := range s.records {
		slices.SortFunc(rs, func(a, b *PackageRecord) int {
			av, bv := a.Value(), b.Value()
			return av.Compare(&bv)
		})
	}
	return s, nil
}

func (s *Snapshot) scanStore(storePath string) error {
	entries, err := os.ReadDir(storePath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("package store does not exist yet", "store", storePath)
			return nil
		}
		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		entryPath := filepath.Join(storePath, e.Name())
		pkg, err := ReadPackage(filepath.Join(entryPath, toolconfig.PackageFilename))
		if err != nil {
			slog.Warn("skipping malformed store entry", "entry", e.Name(), "err", err.Error())
			continue
		}

		installPath, err := filepath.Abs(entryPath)
		if err != nil {
			return err
		}
		record := pkg.Record(installPath)
		// the dir name is advisory, package.yaml is authoritative
		if e.Name() != record.Ref() {
			slog.Warn("store entry directory does not match its package descriptor",
				"entry", e.Name(), "package", record.Ref())
		}
		s.add(record)
	}
	return nil
}

func (s *Snapshot) loadCatalog(storePath string) {
	p, ok := findCatalog(storePath)
	if !ok {
		return
	}
	c, err := ReadCatalog(p)
	if err != nil {
		slog.Warn("ignoring unreadable package catalog", "catalog", p, "err", err.Error())
		return
	}

	current := platform.Current()
	baseDir := filepath.Dir(p)
	for _, e := range c.Spec.Packages {
		if !e.supportsPlatform(current) {
			slog.Debug("skipping catalog entry for foreign platform",
				"package", e.Name, "platform", current.String())
			continue
		}
		if !s.add(e.record(baseDir)) {
			slog.Debug("catalog entry shadowed by installed store entry", "package", e.Name)
		}
	}
}

// add keeps the first record seen per (name, version); store entries are
// added before catalog entries and therefore win.
func (s *Snapshot) add(r *PackageRecord) bool {
	existing := s.records[r.Name]
	_, dup := lo.Find(existing, func(o *PackageRecord) bool {
		ov, rv := o.Value(), r.Value()
		return ov.Equal(&rv)
	})
	if dup {
		return false
	}
	s.records[r.Name] = append(existing, r)
	return true
}

// Candidates returns the store/catalog candidates for name, sorted by
// ascending version. Host candidates are never included.
func (s *Snapshot) Candidates(name string) []*PackageRecord {
	return s.records[name]
}

// Lookup finds the exact (name, version) candidate, for pinned resolution.
func (s *Snapshot) Lookup(name string, version *semver.Version) (*PackageRecord, bool) {
	return lo.Find(s.records[name], func(r *PackageRecord) bool {
		rv := r.Value()
		return rv.Equal(version)
	})
}

// HostCandidate looks for an executable called name on the host PATH.
// Host candidates are version-less and only exist when fallback is enabled.
func (s *Snapshot) HostCandidate(name string) (*PackageRecord, bool) {
	if !s.hostFallback {
		return nil, false
	}
	if r, attempted := s.hostRecords[name]; attempted {
		return r, r != nil
	}

	dir, found := lookupExecutable(name, s.hostPath)
	if !found {
		s.hostRecords[name] = nil
		return nil, false
	}

	r := &PackageRecord{
		Name:        name,
		InstallPath: dir,
		Binaries:    []string{name},
		Host:        true,
	}
	s.hostRecords[name] = r
	return r, true
}

func lookupExecutable(name, pathValue string) (string, bool) {
	for _, dir := range filepath.SplitList(pathValue) {
		if dir == "" {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0o111 == 0 {
			continue
		}
		return dir, true
	}
	return "", false
}
