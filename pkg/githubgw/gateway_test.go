package githubgw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v69/github"

	"github.com/reisbot/reisbot/pkg/failure"
)

func newTestGateway(t *testing.T, mux *http.ServeMux) *Gateway {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	client.BaseURL = base
	return NewWithClient(client, "zafer")
}

func contentJSON(path, sha string) string {
	return fmt.Sprintf(`{"type":"file","name":"%s","path":"%s","sha":"%s","size":5,"content":"aGVsbG8=","encoding":"base64"}`, path, path, sha)
}

func TestUpdateFileResolvesRefImmediatelyBeforeWrite(t *testing.T) {
	currentSHA := "sha-initial"
	var pushedSHA string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zafer/demo/contents/main.py", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			// Simulate an intervening update racing the caller.
			currentSHA = "sha-latest"
			fmt.Fprint(w, contentJSON("main.py", currentSHA))
		case http.MethodPut:
			var body struct {
				SHA string `json:"sha"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode put body: %v", err)
			}
			pushedSHA = body.SHA
			fmt.Fprint(w, `{"content":{"sha":"sha-after"}}`)
		}
	})

	g := newTestGateway(t, mux)
	if err := g.UpdateFile(context.Background(), "demo", "main.py", []byte("new"), ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	if pushedSHA != "sha-latest" {
		t.Errorf("mutating call used ref %q, want the freshly resolved %q", pushedSHA, "sha-latest")
	}
}

func TestUpdateFileStaleRefIsConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zafer/demo/contents/main.py", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, contentJSON("main.py", "sha-old"))
		case http.MethodPut:
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"message":"main.py does not match sha-old"}`)
		}
	})

	g := newTestGateway(t, mux)
	err := g.UpdateFile(context.Background(), "demo", "main.py", []byte("new"), "")
	if failure.KindOf(err) != failure.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestCreateFileExistingPathIsConflictWithoutWrite(t *testing.T) {
	wrote := false
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zafer/demo/contents/app.py", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, contentJSON("app.py", "sha-1"))
		case http.MethodPut:
			wrote = true
			fmt.Fprint(w, `{"content":{"sha":"x"}}`)
		}
	})

	g := newTestGateway(t, mux)
	err := g.CreateFile(context.Background(), "demo", "app.py", []byte("x"), "")
	if failure.KindOf(err) != failure.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if wrote {
		t.Error("existence check must prevent the write, but a PUT went out")
	}
}

func TestDeleteFileMissingIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zafer/demo/contents/gone.py", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	g := newTestGateway(t, mux)
	err := g.DeleteFile(context.Background(), "demo", "gone.py")
	if failure.KindOf(err) != failure.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestUpsertFileCreatesWhenAbsentUpdatesWhenPresent(t *testing.T) {
	exists := false
	var lastMethodSHA string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zafer/demo/contents/bot.py", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message":"Not Found"}`)
				return
			}
			fmt.Fprint(w, contentJSON("bot.py", "sha-live"))
		case http.MethodPut:
			var body struct {
				SHA string `json:"sha"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			lastMethodSHA = body.SHA
			exists = true
			fmt.Fprint(w, `{"content":{"sha":"sha-next"}}`)
		}
	})

	g := newTestGateway(t, mux)

	created, err := g.UpsertFile(context.Background(), "demo", "bot.py", []byte("v1"), "")
	if err != nil || !created {
		t.Fatalf("first upsert should create: created=%v err=%v", created, err)
	}
	if lastMethodSHA != "" {
		t.Errorf("create must not carry a ref, got %q", lastMethodSHA)
	}

	created, err = g.UpsertFile(context.Background(), "demo", "bot.py", []byte("v2"), "")
	if err != nil || created {
		t.Fatalf("second upsert should update: created=%v err=%v", created, err)
	}
	if lastMethodSHA != "sha-live" {
		t.Errorf("update must carry the current ref, got %q", lastMethodSHA)
	}
}

func TestCreateRepositoryNameTakenIsAlreadyExists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Validation Failed","errors":[{"resource":"Repository","field":"name","code":"custom"}]}`)
	})

	g := newTestGateway(t, mux)
	_, err := g.CreateRepository(context.Background(), "demo", "", false)
	if failure.KindOf(err) != failure.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestCreateRepositoryReturnsURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"name":"demo","html_url":"https://github.com/zafer/demo"}`)
	})

	g := newTestGateway(t, mux)
	url, err := g.CreateRepository(context.Background(), "demo", "auto", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if url != "https://github.com/zafer/demo" {
		t.Errorf("unexpected url %q", url)
	}
}

func TestListRepositoriesProviderErrorYieldsEmptySlice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	g := newTestGateway(t, mux)
	repos := g.ListRepositories(context.Background())
	if repos == nil || len(repos) != 0 {
		t.Fatalf("expected empty slice, got %v", repos)
	}
}

func TestListCommitsTruncatesAndPrefixesSHA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zafer/demo/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"sha":"aaaaaaaabbbbbbbb","commit":{"message":"third","author":{"name":"Zafer","date":"2025-08-30T10:00:00Z"}}},
			{"sha":"ccccccccdddddddd","commit":{"message":"second","author":{"name":"Zafer","date":"2025-08-29T10:00:00Z"}}},
			{"sha":"eeeeeeeeffffffff","commit":{"message":"first","author":{"name":"Zafer","date":"2025-08-28T10:00:00Z"}}}
		]`)
	})

	g := newTestGateway(t, mux)
	commits := g.ListCommits(context.Background(), "demo", 2)
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	if commits[0].SHA != "aaaaaaa" {
		t.Errorf("expected 7-char sha prefix, got %q", commits[0].SHA)
	}
	if commits[0].Message != "third" {
		t.Errorf("expected newest-first order, got %q", commits[0].Message)
	}
}

func TestReadFileDecodesContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zafer/demo/contents/hello.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, contentJSON("hello.txt", "sha-1"))
	})

	g := newTestGateway(t, mux)
	data, err := g.ReadFile(context.Background(), "demo", "hello.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected decoded content, got %q", data)
	}
}
