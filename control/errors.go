// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import "errors"

// ErrLoopStopped is returned for work submitted to a stopped Loop.
var ErrLoopStopped = errors.New("control loop stopped")
