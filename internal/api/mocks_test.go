package api

import (
	"context"
	"sync"

	"github.com/fixtral/fixtral/internal/editor"
	"github.com/fixtral/fixtral/internal/reddit"
)

type mockFeed struct {
	mu        sync.Mutex
	posts     []reddit.Post
	err       error
	refreshes []bool
	cleared   int
}

func (m *mockFeed) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
}

func (m *mockFeed) Posts(_ context.Context, refresh bool) ([]reddit.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes = append(m.refreshes, refresh)
	return m.posts, m.err
}

type mockPrompts struct {
	out      string
	err      error
	calls    int
	title    string
	imageURL string
}

func (m *mockPrompts) Generate(_ context.Context, title, imageURL string) (string, error) {
	m.calls++
	m.title = title
	m.imageURL = imageURL
	return m.out, m.err
}

type mockEditor struct {
	res   editor.Result
	err   error
	calls int
	last  editor.Request
}

func (m *mockEditor) Edit(_ context.Context, req editor.Request) (editor.Result, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return editor.Result{}, m.err
	}
	res := m.res
	res.Provider = req.Provider
	return res, nil
}

type testDeps struct {
	feed    *mockFeed
	prompts *mockPrompts
	editor  *mockEditor
}

func newTestDeps() (testDeps, Deps) {
	td := testDeps{
		feed:    &mockFeed{},
		prompts: &mockPrompts{},
		editor:  &mockEditor{},
	}
	return td, Deps{Feed: td.feed, Prompts: td.prompts, Editor: td.editor}
}
