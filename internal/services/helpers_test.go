package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"companywise/internal/datasource"
	"companywise/internal/problems"
	"companywise/internal/progress"
	"companywise/internal/shared/testutil"
	"companywise/internal/storage"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// stubSource serves tables from memory. Requests for the blocking company
// wait for their context and announce themselves on started.
type stubSource struct {
	companies []string
	tables    map[string]string
	err       error
	blocking  string
	started   chan string
}

func newStubSource() *stubSource {
	return &stubSource{
		companies: []string{"Amazon", "Google", "Jane Street"},
		tables: map[string]string{
			"Google/" + problems.ThirtyDays.FileName: testutil.SampleTable,
			"Google/" + problems.AllTime.FileName:    testutil.CSVHeader + "\nEASY,Valid Parentheses,50,0.4,https://leetcode.com/problems/valid-parentheses,Stack\n",
			"Amazon/" + problems.ThirtyDays.FileName: testutil.SampleTable,
			"Broken/" + problems.ThirtyDays.FileName: "Difficulty,Title\n",
		},
		started: make(chan string, 4),
	}
}

func (s *stubSource) Companies(ctx context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.companies, nil
}

func (s *stubSource) Table(ctx context.Context, company string, window problems.Window) ([]byte, error) {
	if err := datasource.ValidateCompany(company); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if company == s.blocking {
		s.started <- company
		<-ctx.Done()
		return nil, ctx.Err()
	}
	raw, ok := s.tables[company+"/"+window.FileName]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", datasource.ErrDataUnavailable, company, window.FileName)
	}
	return []byte(raw), nil
}

type published struct {
	Identity string
	Type     string
	Data     interface{}
}

// recordingPublisher captures realtime messages.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(ctx context.Context, identity, msgType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{Identity: identity, Type: msgType, Data: data})
}

func (p *recordingPublisher) Messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

// failingStore reads like an empty store and fails every write.
type failingStore struct {
	storage.Store
}

var errWriteFailed = errors.New("disk full")

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (failingStore) Put(ctx context.Context, key string, value []byte) error {
	return errWriteFailed
}

// flakyStore fails the first failures reads.
type flakyStore struct {
	storage.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset")
	}
	return s.Store.Get(ctx, key)
}

func newProgressService(t *testing.T, store storage.Store, pub *recordingPublisher) *ProgressService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	opts := ProgressOptions{Location: time.UTC, Clock: fixedClock, Logger: logger}
	if pub != nil {
		opts.Publisher = pub
	}
	return NewProgressService(store, opts)
}

func newCatalog(t *testing.T, src datasource.Source) *CatalogService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewCatalogService(src, nil, logger)
}

func seed(t *testing.T, store storage.Store, identity string, s progress.State) {
	t.Helper()
	data, err := progress.Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := store.Put(context.Background(), progress.Key(identity), data); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func day(s string) *string { return &s }

const sampleCSV = testutil.SampleTable
