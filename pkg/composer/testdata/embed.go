// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testdata

import (
	_ "embed"
)

//go:embed scenario.yaml
var Scenario []byte
