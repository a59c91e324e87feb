package rendergw

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reisbot/reisbot/pkg/failure"
)

func newTestGateway(t *testing.T, mux *http.ServeMux) *Gateway {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewWithBaseURL(srv.URL, "test-key", "own-test")
}

func TestTriggerDeployTwiceYieldsDistinctIDs(t *testing.T) {
	n := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/services/srv-1/deploys", func(w http.ResponseWriter, r *http.Request) {
		n++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":"dep-%d","status":"created"}`, n)
	})

	g := newTestGateway(t, mux)
	first, err := g.TriggerDeploy(context.Background(), "srv-1")
	if err != nil {
		t.Fatalf("first deploy: %v", err)
	}
	second, err := g.TriggerDeploy(context.Background(), "srv-1")
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct deploy ids, got %q twice", first)
	}
}

func TestRestartServiceIsDeployAlias(t *testing.T) {
	deploys := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/services/srv-1/deploys", func(w http.ResponseWriter, r *http.Request) {
		deploys++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":"dep-%d"}`, deploys)
	})

	g := newTestGateway(t, mux)
	id, err := g.RestartService(context.Background(), "srv-1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if deploys != 1 || id != "dep-1" {
		t.Fatalf("restart must create exactly one new deploy, got %d (%s)", deploys, id)
	}
}

func TestListServicesUnwrapsCursorEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"service":{"id":"srv-1","name":"api","branch":"main","serviceDetails":{"status":"available","url":"https://api.onrender.com"}},"cursor":"c1"},
			{"service":{"id":"srv-2","name":"worker","serviceDetails":{"status":"build_in_progress"}},"cursor":"c2"}
		]`)
	})

	g := newTestGateway(t, mux)
	services := g.ListServices(context.Background())
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services[0].ID != "srv-1" || services[0].Status != StatusLive {
		t.Errorf("unexpected first service: %+v", services[0])
	}
	if services[1].Status != StatusBuilding {
		t.Errorf("expected building status, got %s", services[1].Status)
	}
}

func TestListServicesErrorYieldsEmptySlice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	g := newTestGateway(t, mux)
	if services := g.ListServices(context.Background()); len(services) != 0 {
		t.Fatalf("expected empty slice on provider error, got %v", services)
	}
}

func TestGetServiceDetailsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services/srv-404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	g := newTestGateway(t, mux)
	_, err := g.GetServiceDetails(context.Background(), "srv-404")
	if failure.KindOf(err) != failure.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCreateServiceStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   failure.Kind
	}{
		{"conflict", http.StatusConflict, failure.AlreadyExists},
		{"bad spec", http.StatusBadRequest, failure.InvalidSpec},
		{"server error", http.StatusBadGateway, failure.Transport},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			g := newTestGateway(t, mux)
			_, err := g.CreateService(context.Background(), "demo", "https://github.com/zafer/demo", "", "")
			if failure.KindOf(err) != tc.want {
				t.Fatalf("status %d: expected %s, got %v", tc.status, tc.want, err)
			}
		})
	}
}

func TestCreateServiceParsesResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"service":{"id":"srv-9","name":"demo","branch":"main","serviceDetails":{"status":"build_in_progress","url":"https://demo.onrender.com"}}}`)
	})

	g := newTestGateway(t, mux)
	svc, err := g.CreateService(context.Background(), "demo", "https://github.com/zafer/demo", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if svc.ID != "srv-9" || svc.URL != "https://demo.onrender.com" {
		t.Errorf("unexpected service %+v", svc)
	}
}

func TestListDeploysParsesFinishedAt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services/srv-1/deploys", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"deploy":{"id":"dep-2","status":"build_in_progress","createdAt":"2025-08-30T10:00:00Z"}},
			{"deploy":{"id":"dep-1","status":"live","createdAt":"2025-08-29T10:00:00Z","finishedAt":"2025-08-29T10:05:00Z"}}
		]`)
	})

	g := newTestGateway(t, mux)
	deploys, err := g.ListDeploys(context.Background(), "srv-1", 5)
	if err != nil {
		t.Fatalf("list deploys: %v", err)
	}
	if len(deploys) != 2 {
		t.Fatalf("expected 2 deploys, got %d", len(deploys))
	}
	if deploys[0].FinishedAt != nil {
		t.Error("in-progress deploy must have nil FinishedAt")
	}
	if deploys[1].FinishedAt == nil {
		t.Error("finished deploy must carry FinishedAt")
	}
	if deploys[0].Status != DeployInProgress || deploys[1].Status != DeployLive {
		t.Errorf("unexpected statuses: %s, %s", deploys[0].Status, deploys[1].Status)
	}
}

func TestGetLogsAcceptsBothPayloadShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"string array", `["line one","line two"]`},
		{"message objects", `{"logs":[{"message":"line one"},{"message":"line two"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/services/srv-1/logs", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			})

			g := newTestGateway(t, mux)
			lines, err := g.GetLogs(context.Background(), "srv-1", 10)
			if err != nil {
				t.Fatalf("get logs: %v", err)
			}
			if len(lines) != 2 || lines[0] != "line one" || lines[1] != "line two" {
				t.Fatalf("unexpected lines %v", lines)
			}
		})
	}
}

func TestUpdateEnvVarsSendsKeyValueList(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/services/srv-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("expected PATCH, got %s", r.Method)
		}
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		got = string(buf)
		w.WriteHeader(http.StatusOK)
	})

	g := newTestGateway(t, mux)
	err := g.UpdateEnvVars(context.Background(), "srv-1", map[string]string{"B_KEY": "2", "A_KEY": "1"})
	if err != nil {
		t.Fatalf("update env vars: %v", err)
	}
	want := `{"envVars":[{"key":"A_KEY","value":"1"},{"key":"B_KEY","value":"2"}]}`
	if got != want {
		t.Errorf("payload mismatch:\n got %s\nwant %s", got, want)
	}
}
