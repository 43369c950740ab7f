// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package load

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/cinesync/internal/elastic"
	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/retry"
	"github.com/tomtom215/cinesync/internal/state"
)

type fakeIndexer struct {
	bodies   [][]byte
	failures []error
	// onBulk runs before the response is produced.
	onBulk func()
}

func (f *fakeIndexer) Index() string { return "movies" }

func (f *fakeIndexer) Bulk(_ context.Context, body []byte) (*elastic.BulkResponse, error) {
	if f.onBulk != nil {
		f.onBulk()
	}
	f.bodies = append(f.bodies, bytes.Clone(body))
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	return &elastic.BulkResponse{Took: 1}, nil
}

var fastPolicy = retry.Policy{StartDelay: time.Millisecond, Factor: 2, MaxDelay: 5 * time.Millisecond}

func newTestPublisher(t *testing.T, dir string, idx Indexer) *Publisher {
	t.Helper()
	store := state.New(state.ConsumerLoader, state.NewFileStorage(dir, state.ConsumerLoader))
	return NewPublisher(idx, store, fastPolicy)
}

func film7() models.Document {
	d := models.NewDocument("7", "Seven")
	d.Genres = []string{"Drama"}
	d.Actors = []models.Person{{ID: "3", Name: "A"}}
	d.ActorsNames = "A"
	return d
}

func TestEncodeBulk(t *testing.T) {
	body, err := EncodeBulk("movies", []models.Document{film7()})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), body)
	}
	if lines[0] != `{"index":{"_index":"movies","_id":"7"}}` {
		t.Errorf("action line = %s", lines[0])
	}
	for _, frag := range []string{`"id":"7"`, `"genres":["Drama"]`, `"actors":[{"id":"3","name":"A"}]`, `"writers":[]`, `"director":[]`} {
		if !strings.Contains(lines[1], frag) {
			t.Errorf("source line missing %s: %s", frag, lines[1])
		}
	}
	if !bytes.HasSuffix(body, []byte("\n")) {
		t.Error("body must end with a newline")
	}
}

func TestPublishStoresBeforeSending(t *testing.T) {
	idx := &fakeIndexer{}
	p := newTestPublisher(t, t.TempDir(), idx)
	idx.onBulk = func() {
		if !p.Pending() {
			t.Error("body must be stored before it is sent")
		}
	}

	resps, err := p.Publish(context.Background(), []models.Document{film7()})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(resps) != 1 || len(idx.bodies) != 1 {
		t.Errorf("responses = %d, requests = %d", len(resps), len(idx.bodies))
	}
	if p.Pending() {
		t.Error("slot not cleared after confirmation")
	}
}

func TestPublishRetriesTransient(t *testing.T) {
	idx := &fakeIndexer{failures: []error{
		retry.Transient(errors.New("502")),
		retry.Transient(errors.New("connection reset")),
	}}
	p := newTestPublisher(t, t.TempDir(), idx)

	if _, err := p.Publish(context.Background(), []models.Document{film7()}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(idx.bodies) != 3 {
		t.Fatalf("requests = %d, want 3", len(idx.bodies))
	}
	if !bytes.Equal(idx.bodies[0], idx.bodies[2]) {
		t.Error("retried body differs from the first attempt")
	}
}

func TestPublishReplaysAfterFailure(t *testing.T) {
	dir := t.TempDir()
	rejected := fmt.Errorf("%w: status 400", elastic.ErrBulkRejected)
	first := &fakeIndexer{failures: []error{rejected}}

	_, err := newTestPublisher(t, dir, first).Publish(context.Background(), []models.Document{film7()})
	if !errors.Is(err, elastic.ErrBulkRejected) {
		t.Fatalf("Publish() error = %v", err)
	}

	second := &fakeIndexer{}
	restarted := newTestPublisher(t, dir, second)
	if !restarted.Pending() {
		t.Fatal("failed body should stay pending")
	}

	other := models.NewDocument("8", "Eight")
	resps, err := restarted.Publish(context.Background(), []models.Document{other})
	if err != nil {
		t.Fatal(err)
	}
	if len(resps) != 2 || len(second.bodies) != 2 {
		t.Fatalf("responses = %d, requests = %d", len(resps), len(second.bodies))
	}
	if !bytes.Equal(second.bodies[0], first.bodies[0]) {
		t.Errorf("replayed body differs:\n%s\n%s", second.bodies[0], first.bodies[0])
	}
	if !bytes.Contains(second.bodies[1], []byte(`"_id":"8"`)) {
		t.Errorf("second request = %s", second.bodies[1])
	}
}

func TestPublishEmpty(t *testing.T) {
	idx := &fakeIndexer{}
	resps, err := newTestPublisher(t, t.TempDir(), idx).Publish(context.Background(), nil)
	if err != nil || len(resps) != 0 || len(idx.bodies) != 0 {
		t.Errorf("Publish(nil) = %v, %v; requests = %d", resps, err, len(idx.bodies))
	}
}

func TestPublishSameDocumentTwice(t *testing.T) {
	idx := &fakeIndexer{}
	p := newTestPublisher(t, t.TempDir(), idx)
	for range 2 {
		if _, err := p.Publish(context.Background(), []models.Document{film7()}); err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(idx.bodies[0], idx.bodies[1]) {
		t.Error("same document must produce the same upsert")
	}
}

func TestRecoverCanceled(t *testing.T) {
	dir := t.TempDir()
	_, _ = newTestPublisher(t, dir, &fakeIndexer{failures: []error{elastic.ErrBulkRejected}}).
		Publish(context.Background(), []models.Document{film7()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestPublisher(t, dir, &fakeIndexer{}).Recover(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Recover() error = %v, want context.Canceled", err)
	}
}
