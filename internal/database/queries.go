// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package database

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/tomtom215/cinesync/internal/models"
)

// Association tables read by the enrichment join.
const (
	personTable      = "person"
	personCrossTable = "person_film_work"
	genreTable       = "genre"
	genreCrossTable  = "genre_film_work"
)

// afterCondition renders the keyset predicate "strictly after w". A
// watermark without an id compares on the timestamp alone.
func afterCondition(sb *sqlbuilder.SelectBuilder, tsCol, idCol string, w models.Watermark) string {
	if w.ID == "" {
		return sb.GreaterThan(tsCol, w.Timestamp)
	}
	return fmt.Sprintf("(%s, %s) > (%s, %s)", tsCol, idCol, sb.Var(w.Timestamp), sb.Var(w.ID))
}

// changedRowsQuery selects the next chunk of rows of table modified after w.
func changedRowsQuery(l *Layout, table string, after models.Watermark, limit int) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "updated_at")
	sb.From(l.qualify(table))
	sb.Where(afterCondition(sb, "updated_at", "id", after))
	sb.OrderBy("updated_at", "id")
	sb.Limit(limit)
	return sb.Build()
}

// relatedPrimaryQuery selects one page of primary rows linked to ids of a
// related table. A zero cursor starts from the first page.
func relatedPrimaryQuery(l *Layout, t RelatedTable, ids []string, cursor models.Watermark, limit int) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("fw.id", "fw.updated_at")
	sb.Distinct()
	sb.From(l.qualify(l.Primary.Name) + " fw")
	sb.Join(l.qualify(t.CrossTable)+" c", "c."+l.PrimaryFK+" = fw.id")
	sb.Where(sb.In("c."+t.CrossKey, sqlbuilder.Flatten(ids)...))
	if !cursor.Timestamp.IsZero() {
		sb.Where(afterCondition(sb, "fw.updated_at", "fw.id", cursor))
	}
	sb.OrderBy("fw.updated_at", "fw.id")
	sb.Limit(limit)
	return sb.Build()
}

// crossPrimaryQuery selects one page of primary ids referenced by rows of a
// cross table, ordered by primary id.
func crossPrimaryQuery(l *Layout, t CrossTable, ids []string, afterID string, limit int) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("c." + l.PrimaryFK + " AS id")
	sb.Distinct()
	sb.From(l.qualify(t.Name) + " c")
	sb.Where(sb.In("c.id", sqlbuilder.Flatten(ids)...))
	if afterID != "" {
		sb.Where(sb.GreaterThan("c."+l.PrimaryFK, afterID))
	}
	sb.OrderBy("id")
	sb.Limit(limit)
	return sb.Build()
}

// enrichedRowsQuery returns every (person role, genre) combination of the
// given films. LEFT JOINs keep films without associations as a single row
// of NULLs.
func enrichedRowsQuery(l *Layout, ids []string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"fw.id AS fw_id",
		"fw.title AS fw_title",
		"fw.description AS fw_description",
		"fw.rating AS fw_rating",
		"fw.type AS fw_type",
		"pfw.role AS p_role",
		"p.id AS p_id",
		"p.full_name AS p_full_name",
		"g.name AS g_genre",
	)
	sb.From(l.qualify(l.Primary.Name) + " fw")
	sb.JoinWithOption(sqlbuilder.LeftJoin, l.qualify(personCrossTable)+" pfw", "pfw."+l.PrimaryFK+" = fw.id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, l.qualify(personTable)+" p", "p.id = pfw.person_id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, l.qualify(genreCrossTable)+" gfw", "gfw."+l.PrimaryFK+" = fw.id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, l.qualify(genreTable)+" g", "g.id = gfw.genre_id")
	sb.Where(sb.In("fw.id", sqlbuilder.Flatten(ids)...))
	sb.OrderBy("fw.id")
	return sb.Build()
}

// latestRowQuery selects the most recently modified row of table.
func latestRowQuery(l *Layout, table string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "updated_at")
	sb.From(l.qualify(table))
	sb.OrderBy("updated_at DESC", "id DESC")
	sb.Limit(1)
	return sb.Build()
}
