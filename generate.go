//go:build generate
// +build generate

// See the below link for details on what is happening here.
// https://go.dev/wiki/Modules#how-can-i-track-tool-dependencies-for-a-module

package main

import (
	_ "sigs.k8s.io/controller-tools/cmd/controller-gen" //nolint:typecheck
)
