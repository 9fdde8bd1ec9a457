// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package stringset

type StringSet map[string]struct{}

func (ss StringSet) Add(s string) StringSet {
	ss[s] = struct{}{}
	return ss
}

func (ss StringSet) Remove(s string) {
	delete(ss, s)
}

func (ss StringSet) Contains(s string) bool {
	_, ok := ss[s]
	return ok
}
