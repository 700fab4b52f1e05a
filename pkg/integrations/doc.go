// Package integrations provides HTTP clients for external design tools.
//
// # Overview
//
// Each tool has its own subpackage:
//
//   - [canva]: OAuth (PKCE), brand templates, autofill and export jobs
//   - [figma]: file and frame inspection, SVG/PNG export
//
// # Shared Infrastructure
//
// The [Client] type provides shared HTTP functionality used by all tool
// clients: default headers, retry with backoff for network errors and 5xx
// responses, status mapping to [errors.Code] values, bounded downloads and
// response caching via [cache.Cache].
//
// Status mapping:
//
//   - 404 → NOT_FOUND wrapping [ErrNotFound]
//   - 401/403 → UNAUTHORIZED wrapping [ErrUnauthorized]
//   - 429 → [errors.RateLimitedError]
//   - 5xx and transport errors → retried, then NETWORK_ERROR
//
// [canva]: github.com/siete/assetforge/pkg/integrations/canva
// [figma]: github.com/siete/assetforge/pkg/integrations/figma
// [cache.Cache]: github.com/siete/assetforge/pkg/cache.Cache
// [errors.Code]: github.com/siete/assetforge/pkg/errors.Code
// [errors.RateLimitedError]: github.com/siete/assetforge/pkg/errors.RateLimitedError
package integrations
