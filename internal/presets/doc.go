// Package presets persists named FFmpeg argument profiles as JSON files,
// one per preset, under the configured presets directory.
//
// A render request that names a preset gets its CommandArgs spliced in as
// the user-argument block. Presets with no explicit args fall back to the
// codec shorthand fields.
package presets
