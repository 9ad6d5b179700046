// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

/*
Package supervisor runs the server's long-lived services under suture v4.

	root ("listingguard")
	├── storage-layer
	│   └── BadgerGCService (sanctions backend = badger)
	├── messaging-layer
	│   └── EventRouterService (events.enabled)
	└── api-layer
	    └── HTTPServerService

Each layer restarts its services independently with suture's backoff.
Supervisor events are logged through sutureslog into the zerolog-backed
slog handler from internal/logging.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
