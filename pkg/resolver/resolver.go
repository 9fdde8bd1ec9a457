// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"

	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/resolver/resolvererrors"
	"envtool.dev/x/envtool/pkg/utils"
)

// RecordCache is an optional on-disk cache of resolved records.
// Fetch errors are treated as misses; Store failures are logged, never fatal.
type RecordCache interface {
	Fetch(ctx context.Context, name string, version *semver.Version) (*pkgindex.PackageRecord, error)
	Store(ctx context.Context, record *pkgindex.PackageRecord) error
}

// Resolver picks one concrete record per requested package against a fixed
// snapshot. Results are deterministic for a given snapshot and preserve the
// request order.
type Resolver struct {
	snapshot *pkgindex.Snapshot

	// Cache, when set, is consulted for pinned requests and written through
	// after successful store/catalog resolutions
	Cache RecordCache

	// Pins force exact versions (from a lockfile) before constraint solving
	Pins map[string]*semver.Version

	memo map[string]*pkgindex.PackageRecord
}

func New(snapshot *pkgindex.Snapshot) *Resolver {
	return &Resolver{
		snapshot: snapshot,
		memo:     map[string]*pkgindex.PackageRecord{},
	}
}

func (r *Resolver) Resolve(ctx context.Context, requests []*manifest.Requirement) ([]*pkgindex.PackageRecord, error) {
	records := make([]*pkgindex.PackageRecord, 0, len(requests))
	for _, req := range requests {
		record, err := r.resolveOne(ctx, req)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Resolver) resolveOne(ctx context.Context, req *manifest.Requirement) (*pkgindex.PackageRecord, error) {
	if record, ok := r.memo[req.String()]; ok {
		return record, nil
	}

	record, err := r.pick(ctx, req)
	if err != nil {
		return nil, err
	}

	r.memo[req.String()] = record
	r.writeThrough(ctx, record)
	return record, nil
}

func (r *Resolver) pick(ctx context.Context, req *manifest.Requirement) (*pkgindex.PackageRecord, error) {
	if pin, ok := r.Pins[req.Name]; ok {
		return r.pickPinned(ctx, req, pin)
	}

	candidates := r.snapshot.Candidates(req.Name)

	if req.Version == nil {
		if len(candidates) > 0 {
			// highest known version
			return candidates[len(candidates)-1], nil
		}
		if host, ok := r.snapshot.HostCandidate(req.Name); ok {
			return host, nil
		}
		return nil, resolvererrors.NewPackageNotFoundError(req.Name,
			fmt.Errorf("no package %q in the index", req.Name))
	}

	// highest satisfying version wins
	for i := len(candidates) - 1; i >= 0; i-- {
		v := candidates[i].Value()
		if req.Version.Check(&v) {
			return candidates[i], nil
		}
	}

	if len(candidates) == 0 {
		// host executables are version-less and never satisfy constraints
		if _, ok := r.snapshot.HostCandidate(req.Name); ok {
			return nil, resolvererrors.NewConstraintUnsatisfiableError(req.Name,
				fmt.Errorf("only a host executable is available for %q, which cannot satisfy %q", req.Name, req.Version.String()))
		}
		return nil, resolvererrors.NewPackageNotFoundError(req.Name,
			fmt.Errorf("no package %q in the index", req.Name))
	}

	return nil, resolvererrors.NewConstraintUnsatisfiableError(req.Name,
		fmt.Errorf("no version of %q satisfies %q (known: %s)", req.Name, req.Version.String(), knownVersions(candidates)))
}

func (r *Resolver) pickPinned(ctx context.Context, req *manifest.Requirement, pin *semver.Version) (*pkgindex.PackageRecord, error) {
	if req.Version != nil && !req.Version.Check(pin) {
		return nil, resolvererrors.NewConstraintUnsatisfiableError(req.Name,
			fmt.Errorf("locked version %s does not satisfy %q. Run 'envtool lock' to refresh the lockfile", pin.String(), req.Version.String()))
	}

	if cached := r.fetchCached(ctx, req.Name, pin); cached != nil {
		return cached, nil
	}

	if record, ok := r.snapshot.Lookup(req.Name, pin); ok {
		return record, nil
	}

	candidates := r.snapshot.Candidates(req.Name)
	if len(candidates) == 0 {
		return nil, resolvererrors.NewPackageNotFoundError(req.Name,
			fmt.Errorf("no package %q in the index", req.Name))
	}
	return nil, resolvererrors.NewConstraintUnsatisfiableError(req.Name,
		fmt.Errorf("locked version %s of %q is not available (known: %s)", pin.String(), req.Name, knownVersions(candidates)))
}

func (r *Resolver) fetchCached(ctx context.Context, name string, version *semver.Version) *pkgindex.PackageRecord {
	if r.Cache == nil {
		return nil
	}

	record, err := r.Cache.Fetch(ctx, name, version)
	if err != nil || record == nil {
		return nil
	}

	// a cached record is only trustworthy while its install survives
	ok, err := utils.DirExists(record.InstallPath)
	if err != nil || !ok {
		slog.Debug("discarding cached record with missing install path",
			"package", record.String(), "install-path", record.InstallPath)
		return nil
	}
	return record
}

func (r *Resolver) writeThrough(ctx context.Context, record *pkgindex.PackageRecord) {
	if r.Cache == nil || record.Host {
		return
	}
	if err := r.Cache.Store(ctx, record); err != nil {
		slog.Warn("failed to cache resolved record", "package", record.String(), "err", err.Error())
	}
}

func knownVersions(candidates []*pkgindex.PackageRecord) string {
	return strings.Join(lo.Map(candidates, func(c *pkgindex.PackageRecord, _ int) string {
		return c.VersionString()
	}), ", ")
}
