// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testdata

import _ "embed"

//go:embed validPackage.yaml
var ValidPackage []byte

//go:embed pathBindingPackage.yaml
var PathBindingPackage []byte

//go:embed missingVersionPackage.yaml
var MissingVersionPackage []byte

//go:embed wrongKindPackage.yaml
var WrongKindPackage []byte

//go:embed catalog.yaml
var Catalog []byte

//go:embed catalog.yaml.xz
var CatalogXZ []byte
