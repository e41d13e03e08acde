/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package keysem provides a registry of counting semaphores identified by arbitrary comparable keys.
//
// Operations that share a key are limited to the semaphore's capacity of concurrent holders,
// while operations on distinct keys proceed in parallel. The registry only hands out semaphores;
// waiting for a permit happens on the returned *Semaphore and never under the registry lock,
// so a busy key never slows down lookups of other keys.
//
// A typical usage:
//
//	registry := keysem.New[string]()
//	sem := registry.GetOrCreate("row:42", 1)
//	err := sem.Do(ctx, func(ctx context.Context) error {
//		return updateRow(ctx, 42)
//	})
//
// Keys are never expired by the registry. Call Registry.RemoveIfExists when a key is not needed anymore.
// Callers that still hold the removed semaphore may keep using it; the next GetOrCreate for the same key
// starts a new, independent semaphore.
package keysem
