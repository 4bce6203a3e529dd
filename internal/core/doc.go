// Package core converts tabular contact data into vCard 3.0 text.
//
// It has no knowledge of the CLI or HTTP frontends and can be used by both,
// or by tests, without modification.
//
// # Pipeline
//
//  1. [ParseRecords] reads a CSV stream into a [RecordSet]. The BOM is
//     stripped and invalid UTF-8 repaired before parsing.
//  2. [NewColumnMapping] binds columns to [FieldTag] values. A mapping may
//     come from explicit flags, a mapping file ([LoadMappingFile]) or
//     [SuggestMapping].
//  3. A [Builder] turns one [Record] into one vCard, or declines when the
//     record is missing its first or its last name.
//  4. An [Exporter] writes the cards as one file per contact or a single
//     combined file.
//
// [Service] ties the steps together and applies configuration, logging and
// metrics.
//
// # Error Handling
//
// Only [FormatError], [MappingError] and destination errors abort. Photo and
// write failures are counted per record. [MapError] turns any error into a
// [UserMessage] with a support code:
//
//   - CSV001-CSV003: input file problems
//   - MAP001-MAP003: mapping problems
//   - PHOTO001-PHOTO003: photo download problems
//   - WRITE001-WRITE003: output problems
//   - CONV001-CONV002: conversion problems
package core
