// Copyright 2024 The Paimon-Go Authors. All rights reserved. Use of this
// source code is governed by an Apache-style license that can be found in
// the LICENSE file.

// Package paimon implements the write path of a streaming lakehouse table
// engine: CDC record ingestion into an LSM-organised, partitioned, bucketed
// table, a global primary-key index enforcing cross-partition uniqueness, a
// dynamic bucket assigner, and a manifest-driven scan planner.
//
// The package is organised the way pebble organises an embeddable storage
// engine: a flat top-level package exposing Table, Record and CoreOptions,
// with internal/ subpackages for representation details (base, manifest)
// and sibling packages for the pieces that can be exercised independently
// (lsm, globalindex, bucket, scan, mergeengine, sortbuf, commit, changelog).
package paimon
