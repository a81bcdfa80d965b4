// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm talks to the remote completion endpoint.
//
// The wire contract is one HTTPS POST per send: {"message": "..."} out,
// {"status": "success", "response": "..."} or {"error": "..."} back. Any
// other payload counts as "no response from API". No authentication header
// travels with requests.
//
// Send retries up to the configured attempt budget with doubling backoff
// between attempts. Failures classify into a small taxonomy: invalid
// credential, unknown model, and disabled billing abort immediately and
// carry remediation hints; timeouts, rate limits, server errors, malformed
// payloads, and unrecognized failures stay retryable. Exhaustion reports
// the attempt count.
package llm
