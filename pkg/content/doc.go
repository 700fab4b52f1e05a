// Package content defines the visual content types and normalizes the loose
// JSON produced by text generation into the shape the renderers expect.
//
// Generated content rarely uses canonical field names. A carousel may arrive
// with "cierre" instead of "cta", a case study with "cliente" instead of
// "client", and slides are often flattened into arbitrary keys. [Normalize]
// maps aliases onto canonical names and rebuilds the array field (slides or
// key_metrics) from whatever flat text fields remain.
//
// # Visual Types
//
//   - carousel: multi-page PDF, 1080×1080, slides[{headline, body}]
//   - meet_the_team: PNG, 1080×1350
//   - meme: PNG, 1080×1350
//   - case_study: PNG, 1080×1350, key_metrics[{metric, value}]
//   - infografia: PNG, 1080×1350, slides[{headline, body}]
//
// # Field Tables
//
// The canonical fields and their aliases live in an embedded YAML manifest
// (fields.yaml). Aliases are tried in the order listed there, after the
// canonical name.
package content
