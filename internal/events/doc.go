// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

/*
Package events screens listings delivered over a Watermill transport.

A Router consumes SubmissionEvent messages from the submitted topic, runs
them through the screening engine, records the outcome under the review
policy and publishes a ListingScreenedEvent on the screened topic.

Middleware, outermost first:

  - Recoverer turns handler panics into errors (the message is nacked)
  - Retry retries transient failures with exponential backoff
  - PoisonQueue moves malformed payloads to the poison topic and acks them

Unknown actors are not an error here: the deny verdict is published with
publishable=false so the listing service never waits on a message that can
never succeed. History outages under the deny policy and failed enforcement
writes return an error, which nacks the message for redelivery.

The transport is chosen by the caller. The default server build uses an
in-process gochannel; NATS JetStream is wired in cmd/server under the nats
build tag.
*/
package events
