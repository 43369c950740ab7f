// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package transform

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tomtom215/cinesync/internal/models"
)

// namesSeparator joins actor and writer names in the flat name fields.
const namesSeparator = ", "

type filmAccumulator struct {
	doc      models.Document
	genres   map[string]struct{}
	actors   map[models.Person]struct{}
	writers  map[models.Person]struct{}
	director map[string]struct{}
}

func newFilmAccumulator(r models.EnrichedRow) *filmAccumulator {
	doc := models.NewDocument(r.FilmID, r.FilmTitle)
	doc.Description = r.FilmDescription
	doc.Rating = r.FilmRating
	doc.Type = r.FilmType
	return &filmAccumulator{
		doc:      doc,
		genres:   make(map[string]struct{}),
		actors:   make(map[models.Person]struct{}),
		writers:  make(map[models.Person]struct{}),
		director: make(map[string]struct{}),
	}
}

func (f *filmAccumulator) add(r models.EnrichedRow) {
	if r.GenreName != nil {
		f.genres[*r.GenreName] = struct{}{}
	}
	if r.PersonRole == nil || r.PersonName == nil {
		return
	}

	p := models.Person{Name: *r.PersonName}
	if r.PersonID != nil {
		p.ID = *r.PersonID
	}
	switch *r.PersonRole {
	case models.RoleActor:
		f.actors[p] = struct{}{}
	case models.RoleWriter:
		f.writers[p] = struct{}{}
	case models.RoleDirector:
		f.director[p.Name] = struct{}{}
	}
}

func (f *filmAccumulator) build() models.Document {
	doc := f.doc
	doc.Genres = sortedKeys(f.genres)
	doc.Director = sortedKeys(f.director)
	doc.Actors = sortedPeople(f.actors)
	doc.Writers = sortedPeople(f.writers)
	doc.ActorsNames = joinNames(doc.Actors)
	doc.WritersNames = joinNames(doc.Writers)
	return doc
}

// BuildDocuments folds rows into one Document per film, in order of first
// appearance. People and genres are deduplicated by identity and sorted.
func BuildDocuments(rows []models.EnrichedRow) []models.Document {
	var (
		order []string
		films = make(map[string]*filmAccumulator)
	)
	for _, r := range rows {
		acc, ok := films[r.FilmID]
		if !ok {
			acc = newFilmAccumulator(r)
			films[r.FilmID] = acc
			order = append(order, r.FilmID)
		}
		acc.add(r)
	}

	docs := make([]models.Document, 0, len(order))
	for _, id := range order {
		docs = append(docs, films[id].build())
	}
	return docs
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func sortedPeople(set map[models.Person]struct{}) []models.Person {
	out := make([]models.Person, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Person) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func joinNames(people []models.Person) string {
	names := make([]string, len(people))
	for i, p := range people {
		names[i] = p.Name
	}
	return strings.Join(names, namesSeparator)
}
