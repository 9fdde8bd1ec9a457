// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testdata

import _ "embed"

//go:embed valid.yaml
var Valid []byte

//go:embed empty.yaml
var Empty []byte

//go:embed zeroPackages.yaml
var ZeroPackages []byte

//go:embed duplicatePackage.yaml
var DuplicatePackage []byte

//go:embed badConstraint.yaml
var BadConstraint []byte

//go:embed unknownField.yaml
var UnknownField []byte

//go:embed reservedPath.yaml
var ReservedPath []byte

//go:embed badStrategy.yaml
var BadStrategy []byte

//go:embed wrongKind.yaml
var WrongKind []byte
