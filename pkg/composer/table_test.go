// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptorTable(t *testing.T) {
	d := &Descriptor{
		Packages:    map[string]string{"gcc": "13.3.0", "rsync": "host"},
		SearchPaths: []string{"/store/gcc-13.3.0/bin", "/usr/bin"},
		Env:         map[string]string{"CC": "/store/gcc-13.3.0/bin/gcc"},
	}

	out := d.Table()
	assert.Contains(t, out, "gcc")
	assert.Contains(t, out, "13.3.0")
	assert.Contains(t, out, "host")
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "/usr/bin")
	assert.Contains(t, out, "CC")
}
