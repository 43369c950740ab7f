// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package load writes documents to the search index.
//
// The encoded bulk body is stored in the elastic_load pending slot before it
// is sent and cleared once the index has answered. A body left behind by a
// crash is sent again, byte for byte, before anything new. Documents are
// indexed under their film id, so a repeated send is an upsert.
package load

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinesync/internal/elastic"
	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/retry"
	"github.com/tomtom215/cinesync/internal/state"
)

const keyPending = "pending"

// Indexer sends bulk bodies. *elastic.Client implements it.
type Indexer interface {
	Index() string
	Bulk(ctx context.Context, body []byte) (*elastic.BulkResponse, error)
}

var _ Indexer = (*elastic.Client)(nil)

// pendingBody is the stored form of an unconfirmed request.
type pendingBody struct {
	Documents int    `json:"documents"`
	Body      string `json:"body"`
}

// Publisher sends document batches with a durable hand-off.
type Publisher struct {
	indexer Indexer
	policy  retry.Policy
	store   *state.Store
	pending *state.Slot[pendingBody]
}

// NewPublisher returns a Publisher persisting to store.
func NewPublisher(indexer Indexer, store *state.Store, policy retry.Policy) *Publisher {
	return &Publisher{
		indexer: indexer,
		policy:  policy,
		store:   store,
		pending: state.NewSlot[pendingBody](store, keyPending),
	}
}

// Pending reports whether a bulk body awaits confirmation.
func (p *Publisher) Pending() bool {
	return p.pending.Occupied()
}

// Recover sends a stored bulk body, if any. It returns the index answer or
// nil when nothing was pending.
func (p *Publisher) Recover(ctx context.Context) (*elastic.BulkResponse, error) {
	stored, ok, err := p.pending.Peek()
	if err != nil {
		return nil, fmt.Errorf("read pending bulk body: %w", err)
	}
	if !ok {
		return nil, nil
	}

	logging.Ctx(ctx).Info().Int("documents", stored.Documents).Msg("Resending unconfirmed bulk request")
	return p.send(ctx, stored)
}

// Publish sends docs after any leftover request. Responses are returned in
// send order. An empty batch sends nothing new.
func (p *Publisher) Publish(ctx context.Context, docs []models.Document) ([]*elastic.BulkResponse, error) {
	var responses []*elastic.BulkResponse

	replayed, err := p.Recover(ctx)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		responses = append(responses, replayed)
	}
	if len(docs) == 0 {
		return responses, nil
	}

	body, err := EncodeBulk(p.indexer.Index(), docs)
	if err != nil {
		return responses, err
	}
	entry := pendingBody{Documents: len(docs), Body: string(body)}
	if err := p.pending.Put(entry); err != nil {
		return responses, fmt.Errorf("store pending bulk body: %w", err)
	}

	resp, err := p.send(ctx, entry)
	if err != nil {
		return responses, err
	}
	return append(responses, resp), nil
}

func (p *Publisher) send(ctx context.Context, entry pendingBody) (*elastic.BulkResponse, error) {
	body := []byte(entry.Body)
	resp, err := retry.DoValue(ctx, p.policy, "elastic.bulk", func(ctx context.Context) (*elastic.BulkResponse, error) {
		return p.indexer.Bulk(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("bulk index %d documents: %w", entry.Documents, err)
	}

	log := logging.Ctx(ctx)
	if resp.Errors {
		ev := log.Error().Int("documents", entry.Documents).Int("took_ms", resp.Took)
		if failed := resp.FailedItems(); len(failed) > 0 {
			ev = ev.Int("failed", len(failed)).Str("first_failed_id", failed[0].ID).RawJSON("first_error", failed[0].Error)
		}
		ev.Msg("Bulk request completed with item errors")
	} else {
		log.Info().Int("documents", entry.Documents).Int("took_ms", resp.Took).Msg("Bulk request completed")
	}

	if err := p.pending.Clear(); err != nil {
		return resp, fmt.Errorf("clear pending bulk body: %w", err)
	}
	return resp, nil
}

type indexAction struct {
	Index indexMeta `json:"index"`
}

type indexMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// EncodeBulk renders docs as bulk index actions, one action line and one
// source line per document, each terminated by a newline.
func EncodeBulk(index string, docs []models.Document) ([]byte, error) {
	var buf bytes.Buffer
	for _, d := range docs {
		action, err := json.Marshal(indexAction{Index: indexMeta{Index: index, ID: d.ID}})
		if err != nil {
			return nil, fmt.Errorf("encode action for %s: %w", d.ID, err)
		}
		source, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode document %s: %w", d.ID, err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
