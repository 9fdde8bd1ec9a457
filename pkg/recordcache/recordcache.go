// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package recordcache persists resolved package records in an OCI image
// layout under the tool home. Each record is stored as a single YAML blob
// wrapped in an artifact manifest and tagged `<name>-<version>`. The cache
// is purely an accelerator, losing or corrupting it never affects
// resolution results.
package recordcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/errdef"

	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/resolver"
	"envtool.dev/x/envtool/pkg/toolconfig"
	"envtool.dev/x/envtool/pkg/utils"
)

const (
	RecordArtifactType = "application/vnd.envtool.record.v1"
	RecordMediaType    = "application/vnd.envtool.record.v1+yaml"

	// pinned creation annotation, keeps repacking the same record
	// byte-identical
	packEpoch = "1970-01-01T00:00:00Z"
)

var ErrCacheMiss = errors.New("record not in cache")

type Cache struct {
	layoutPath string
	lockPath   string
}

var _ resolver.RecordCache = (*Cache)(nil)

func New(config *toolconfig.Config) *Cache {
	return &Cache{layoutPath: config.OciLayoutCache, lockPath: config.CacheLockFilePath}
}

// Store writes the record into the layout and tags it. Safe to call for an
// already cached record.
func (c *Cache) Store(ctx context.Context, record *pkgindex.PackageRecord) error {
	return utils.WithFileLock(ctx, c.lockPath, func() error {
		s, err := oci.New(c.layoutPath)
		if err != nil {
			return err
		}

		blob, err := yaml.Marshal(record)
		if err != nil {
			return err
		}

		desc := content.NewDescriptorFromBytes(RecordMediaType, blob)
		if err := s.Push(ctx, desc, bytes.NewReader(blob)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
			return err
		}

		manifestDesc, err := oras.PackManifest(ctx, s, oras.PackManifestVersion1_1, RecordArtifactType, oras.PackManifestOptions{
			Layers:              []v1.Descriptor{desc},
			ManifestAnnotations: map[string]string{v1.AnnotationCreated: packEpoch},
		})
		if err != nil {
			return err
		}

		return s.Tag(ctx, manifestDesc, record.Ref())
	})
}

// Fetch looks up the record cached for (name, version). A missing entry is
// an ErrCacheMiss, anything else went wrong reading the layout.
func (c *Cache) Fetch(ctx context.Context, name string, version *semver.Version) (*pkgindex.PackageRecord, error) {
	s, err := oci.New(c.layoutPath)
	if err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("%s-%s", name, version.String())
	manifestDesc, err := s.Resolve(ctx, ref)
	if errors.Is(err, errdef.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, ref)
	}
	if err != nil {
		return nil, err
	}

	manifestBytes, err := content.FetchAll(ctx, s, manifestDesc)
	if err != nil {
		return nil, err
	}
	var manifest v1.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, err
	}
	if len(manifest.Layers) == 0 {
		return nil, fmt.Errorf("cached manifest %q has no record layer", ref)
	}

	blob, err := content.FetchAll(ctx, s, manifest.Layers[0])
	if err != nil {
		return nil, err
	}

	var record pkgindex.PackageRecord
	if err := yaml.Unmarshal(blob, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
