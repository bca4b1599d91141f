// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package models defines the data structures shared across the recommendation core.

Key Components:

  - User: read-mostly replica of a system-of-record user, including the raw tag payload
  - Team: team snapshot held alongside users in the population cache
  - ScoreEntry: one (subject, target, score) row of a precomputed top-K list
  - RecommendationResult and Page: the transient output of an online request
  - Feedback: a like/dislike record persisted through the system-of-record
  - TagCategory: the fixed catalogue of tags offered to clients

Tag payloads are stored exactly as the system-of-record holds them (a JSON
array encoded as a string). Use User.TagList to obtain the parsed set; an
unparseable payload is treated as an empty set and never returns an error.
*/
package models
