// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package models

// Person is an actor or writer reference. Identity is the (id, name) pair.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Document is one film as written to the search index. The index document
// id is ID, so writing the same Document twice is an idempotent upsert.
type Document struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	Rating       *float64 `json:"rating"`
	Type         *string  `json:"type"`
	Genres       []string `json:"genres"`
	Actors       []Person `json:"actors"`
	Writers      []Person `json:"writers"`
	Director     []string `json:"director"`
	ActorsNames  string   `json:"actors_names"`
	WritersNames string   `json:"writers_names"`
}

// NewDocument returns a Document with empty, non-nil collections.
func NewDocument(id, title string) Document {
	return Document{
		ID:       id,
		Title:    title,
		Genres:   []string{},
		Actors:   []Person{},
		Writers:  []Person{},
		Director: []string{},
	}
}
