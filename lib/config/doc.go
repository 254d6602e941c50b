// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for tmuxlink binaries.
//
// Configuration is loaded from a single file specified by either the
// TMUXLINK_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no automatic file search.
// Files are YAML; a .jsonc file has comments and trailing commas
// stripped first and is otherwise parsed the same way.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production defaults to warn-level logs.
//
// ${HOME} and ${VAR:-default} patterns are expanded in the tmux socket,
// tmux config file and bus URL after loading.
//
// This package depends on no other tmuxlink packages.
package config
