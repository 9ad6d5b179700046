// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

/*
Package services adapts server components to suture.Service.

  - HTTPServerService: ListenAndServe plus graceful Shutdown
  - EventRouterService: runs the submission event router until canceled
  - BadgerGCService: periodic value-log GC for the badger sanctions store

Each wrapper returns ctx.Err() on a clean stop and a wrapped error when
the component fails, which tells suture to restart it.
*/
package services
