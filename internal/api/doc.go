// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package api serves recommendations and the operator surface over HTTP.

Routes:

	GET    /healthz                                   dependency pings, 503 when degraded
	GET    /metrics                                   Prometheus exposition
	GET    /swagger/*                                 OpenAPI UI (optional)

	GET    /api/v1/users/{id}/recommendations         one page of recommendations; id may be "guest"
	POST   /api/v1/users/{id}/recommendations/refresh drop the user's cached pages
	POST   /api/v1/feedback                           record a like or dislike
	GET    /api/v1/tag-categories                     tag catalogue

	POST   /admin/precompute/full                     forced rebuild of every list (202)
	POST   /admin/precompute/incremental              rebuild missing lists (202)
	POST   /admin/precompute/users/{id}/{kind}        rebuild one similarity or complement list
	GET    /admin/precompute/status                   run state per kind
	POST   /admin/jobs/{name}                         run any registered job (202)
	DELETE /admin/recommendations/cache               clear result pages

Every JSON response uses the APIResponse envelope. Request parameters are
checked with the validation package; failures answer 400 with per-field
details.

Rate limiting is layered: the Redis-backed per-IP limit is shared by every
instance, and admin routes add a local go-chi/httprate budget. Recommendation
calls are additionally limited per user inside the recommend engine.

Jobs triggered over HTTP run in the background under the same locks as the
scheduled runs, so a trigger during a scheduled run is logged as skipped.
*/
package api
