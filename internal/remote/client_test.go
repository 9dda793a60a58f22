package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestApply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/plugins/run" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.ImageID != "img-1" || req.PluginName != "gaussian_blur" {
			t.Errorf("unexpected request body %+v", req)
		}
		if req.Params["radius"] != 4.0 {
			t.Errorf("params not forwarded: %+v", req.Params)
		}
		json.NewEncoder(w).Encode(runResponse{Success: true, ResultID: "img-2", ExecutionMS: 12.5})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	result, err := c.Apply(context.Background(), "img-1", "gaussian_blur", map[string]any{"radius": 4.0})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result != "img-2" {
		t.Errorf("expected img-2, got %q", result)
	}
}

func TestApplyDecodesDetailError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Image not found"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Apply(context.Background(), "ghost", "invert", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Image not found") {
		t.Errorf("detail not surfaced: %v", err)
	}
}

func TestPersistDispatchesSaveOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.PluginName != saveOperation {
			t.Errorf("expected %s, got %s", saveOperation, req.PluginName)
		}
		if req.Params["output_path"] != "/tmp/out" || req.Params["filename"] != "result" || req.Params["format"] != "png" {
			t.Errorf("unexpected save params %+v", req.Params)
		}
		json.NewEncoder(w).Encode(runResponse{ResultID: "img-1"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.Persist(context.Background(), "img-1", "/tmp/out", "result", "png"); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
}

func TestFetchPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/img-1/metadata" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "img-1", "width": 640, "height": 480})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	ref, err := c.FetchPreview(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("FetchPreview failed: %v", err)
	}
	if ref != srv.URL+"/images/img-1/preview" {
		t.Errorf("unexpected preview ref %q", ref)
	}
}

func TestFetchPreviewStaleHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Image not found"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.FetchPreview(context.Background(), "stale"); err == nil {
		t.Fatal("expected error for stale handle")
	}
}

func TestListImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// The backend answers with a bare array, not a wrapper object.
		w.Write([]byte(`[
			{"id": "img-1", "name": "sunset.jpg", "thumbnail_url": "/images/img-1/thumbnail"},
			{"id": "img-2", "name": "portrait.png", "source_id": "img-1"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	images, err := c.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 2 || images[0].ID != "img-1" || images[1].Name != "portrait.png" {
		t.Errorf("unexpected images %+v", images)
	}
	if images[1].SourceID != "img-1" {
		t.Errorf("source_id not decoded: %+v", images[1])
	}
}

func TestListOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plugins" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// categories maps category name to the plugin names in it.
		w.Write([]byte(`{
			"plugins": [{
				"name": "gaussian_blur",
				"display_name": "Gaussian Blur",
				"category": "filters",
				"params": [{"name": "radius", "type": "float", "default": 2.0, "min": 0, "max": 50}]
			}],
			"categories": {"filters": ["gaussian_blur"], "adjustments": []}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	ops, categories, err := c.ListOperations(context.Background())
	if err != nil {
		t.Fatalf("ListOperations failed: %v", err)
	}
	if len(ops) != 1 || ops[0].Name != "gaussian_blur" || len(ops[0].Params) != 1 {
		t.Errorf("unexpected ops %+v", ops)
	}
	if len(categories) != 2 || categories[0] != "adjustments" || categories[1] != "filters" {
		t.Errorf("expected sorted category names, got %v", categories)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}

func TestUnreachableBackend(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if err := c.Health(context.Background()); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}
