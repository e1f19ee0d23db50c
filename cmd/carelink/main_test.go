package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu    sync.Mutex
	post  models.Post
	likes int
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-ann" {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var cred models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&cred)
		if cred.Password != "secret1" {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "wrong password"})
			return
		}
		reply(w, http.StatusOK, models.TokenPair{AccessToken: "tok-ann", RefreshToken: "ref-ann"})
	})
	mux.HandleFunc("GET /users/me", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, models.User{ID: 1, Name: "Ann", Surname: "Lee"})
	}))
	mux.HandleFunc("GET /users/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, models.User{ID: 2, Name: "Bob"})
	}))
	mux.HandleFunc("GET /posts", authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		reply(w, http.StatusOK, []models.Post{b.post})
	}))
	mux.HandleFunc("GET /posts/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.PathValue("id") != "1" {
			reply(w, http.StatusNotFound, map[string]string{"message": "no such post"})
			return
		}
		reply(w, http.StatusOK, b.post)
	}))
	mux.HandleFunc("POST /reactions", authed(func(w http.ResponseWriter, r *http.Request) {
		var in models.NewReaction
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.likes++
		rec := models.Reaction{ID: 9, UserID: 1, PostID: in.PostID, IsLike: in.IsLike}
		b.post.Reactions = append(b.post.Reactions, rec)
		b.post.LikedUsers = append(b.post.LikedUsers, 1)
		reply(w, http.StatusOK, rec)
	}))
	return mux
}

func setup(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{post: models.Post{ID: 1, AuthorID: 2, Message: "my blood pressure story", UploadDate: "2024-05-01"}}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("APP_ENV", "development")
	return b
}

// run executes one command like a fresh process would: flags reset, new workspace.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	asJSON, feedCategory, postCategory, likersDislike = false, "", "", false
	loginRemember = true
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginIsRememberedAcrossRuns(t *testing.T) {
	setup(t)

	out, err := run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")

	_, err = run(t, "feed")
	assert.Equal(t, models.CodeUnauthorized, models.CodeOf(err))

	out, err = run(t, "login", "-e", "ann@example.com", "-p", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ann Lee (id 1)")

	out, err = run(t, "feed")
	require.NoError(t, err)
	assert.Contains(t, out, "p_1  Bob")
	assert.Contains(t, out, "my blood pressure story")

	_, err = run(t, "logout")
	require.NoError(t, err)
	out, err = run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestLoginWithoutRememberEndsWithProcess(t *testing.T) {
	setup(t)

	_, err := run(t, "login", "-e", "ann@example.com", "-p", "secret1", "--remember=false")
	require.NoError(t, err)

	out, err := run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestLoginValidatesInput(t *testing.T) {
	setup(t)

	_, err := run(t, "login", "-e", "not-an-email", "-p", "secret1")
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))

	_, err = run(t, "login", "-e", "ann@example.com", "-p", "wrong-password")
	assert.Equal(t, models.CodeUnauthorized, models.CodeOf(err))
}

func TestLikeAndShow(t *testing.T) {
	b := setup(t)
	_, err := run(t, "login", "-e", "ann@example.com", "-p", "secret1")
	require.NoError(t, err)

	out, err := run(t, "like", "1", "p_1")
	require.NoError(t, err)
	assert.Equal(t, "p_1: like (+1/-0)\n", out)
	assert.Equal(t, 1, b.likes)

	out, err = run(t, "--json", "show", "1")
	require.NoError(t, err)
	var rows []tree.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, ident.Post(1), rows[0].Node.ID)
	assert.Equal(t, tree.Like, rows[0].Node.Vote)

	_, err = run(t, "show", "7")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))

	_, err = run(t, "like", "1", "x_1")
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))
}

type staticView struct {
	rows []tree.Row
	mine int64
}

func (v staticView) Rows() []tree.Row           { return v.rows }
func (v staticView) CanDelete(n tree.Node) bool { return n.AuthorID == v.mine }

func TestPrintTree(t *testing.T) {
	view := staticView{mine: 1, rows: []tree.Row{
		{Node: tree.Node{ID: ident.Post(1), AuthorID: 1, Author: "Ann", Message: "hello", Vote: tree.Like, LikedBy: []int64{1}}},
		{Node: tree.Node{ID: ident.Comment(4), AuthorID: 2, Author: "Bob", Message: "hi"}, Depth: 1, Collapsed: true},
	}}
	var out bytes.Buffer
	printTree(&out, view)
	assert.Equal(t, "p_1  Ann  +1/-0 [liked] [yours]\n"+
		"  hello\n"+
		"  c_4  Bob  +0/-0\n"+
		"    hi\n"+
		"    ... more replies: carelink show c_4\n", out.String())

	out.Reset()
	printTree(&out, staticView{})
	assert.Equal(t, "(no posts)\n", out.String())
}
