// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides cairn's standard CBOR encoding configuration.
//
// Filtered traces and dependency manifests can be exported as CBOR for
// build tools that cache them. The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding,
// no indefinite-length items. The same manifest always produces
// identical bytes, so its digest can key a cache.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are also written as YAML carry `yaml` tags alongside
// `cbor` tags; the two formats share field names.
package codec
