// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package provenance stamps environment descriptors with the VCS state of
// the repository the manifest lives in. Everything is read from the local
// repository, nothing talks to a remote.
package provenance

import (
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

type Info struct {
	Revision string `yaml:"revision" json:"revision"`
	Tag      string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Dirty    bool   `yaml:"dirty,omitempty" json:"dirty,omitempty"`
}

// Collect inspects the git repository enclosing dir. A dir outside any
// repository, or inside one with no commits yet, yields (nil, nil).
func Collect(dir string) (*Info, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	head, err := r.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	info := &Info{Revision: head.Hash().String()}

	info.Tag, err = headTag(r, head.Hash())
	if err != nil {
		return nil, err
	}

	wt, err := r.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	info.Dirty = !status.IsClean()

	return info, nil
}

// headTag finds a tag pointing at the head commit, peeling annotated tags
// to their target. Empty when the head is untagged.
func headTag(r *git.Repository, head plumbing.Hash) (string, error) {
	tags, err := r.Tags()
	if err != nil {
		return "", err
	}

	var name string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if tag, err := r.TagObject(ref.Hash()); err == nil {
			target = tag.Target
		} else if !errors.Is(err, plumbing.ErrObjectNotFound) {
			return err
		}
		if target == head {
			name = ref.Name().Short()
			return storer.ErrStop
		}
		return nil
	})
	return name, err
}
