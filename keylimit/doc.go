/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package keylimit limits concurrency per string key with limits taken from configuration.
//
// Limits are described by glob rules:
//
//	keyLimit:
//	  defaultLimit: 1
//	  rules:
//	    - keys: ["tenant:*"]
//	      limit: 4
//	    - keys: "report:daily, report:weekly"
//	      limit: 2
//
// The limit of a key is resolved once, when its semaphore is created in the underlying keysem.Registry.
// Middleware applies the Limiter to HTTP requests.
package keylimit
