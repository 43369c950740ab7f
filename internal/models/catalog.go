// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package models

// Person roles as stored in person_film_work.role.
const (
	RoleActor    = "actor"
	RoleWriter   = "writer"
	RoleDirector = "director"
)

// EnrichedRow is one row of the enrichment join. Association columns are
// nil for films without people or genres.
type EnrichedRow struct {
	FilmID          string   `db:"fw_id" json:"fw_id"`
	FilmTitle       string   `db:"fw_title" json:"fw_title"`
	FilmDescription *string  `db:"fw_description" json:"fw_description"`
	FilmRating      *float64 `db:"fw_rating" json:"fw_rating"`
	FilmType        *string  `db:"fw_type" json:"fw_type"`
	PersonRole      *string  `db:"p_role" json:"p_role"`
	PersonID        *string  `db:"p_id" json:"p_id"`
	PersonName      *string  `db:"p_full_name" json:"p_full_name"`
	GenreName       *string  `db:"g_genre" json:"g_genre"`
}
