package compress

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
)

func TestRetrieveUsesDispositionName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download/job-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="holiday_compressed.zip"`)
		w.Write([]byte("zip-bytes"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	artifact, err := client.Retrieve(context.Background(), "/download/job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer artifact.Close()

	if artifact.Name != "holiday_compressed.zip" {
		t.Errorf("unexpected name: %s", artifact.Name)
	}
	if artifact.ContentType != "application/zip" {
		t.Errorf("unexpected content type: %s", artifact.ContentType)
	}

	rc, err := artifact.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "zip-bytes" {
		t.Errorf("unexpected payload: %q", data)
	}
}

func TestRetrieveAbsoluteReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	artifact, err := client.Retrieve(context.Background(), server.URL+"/files/result.zip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer artifact.Close()
	if artifact.Name != "result.zip" {
		t.Errorf("expected name from reference, got %s", artifact.Name)
	}
}

func TestArtifactCloseRemovesTempFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	artifact, err := client.Retrieve(context.Background(), "/download/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := artifact.Path()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected temp file to exist: %v", err)
	}
	if err := artifact.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected temp file removed, stat err = %v", err)
	}
	if err := artifact.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if _, err := artifact.Open(); err == nil {
		t.Error("expected Open after Close to fail")
	}
}

func TestRetrieveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	tests := []struct {
		name       string
		ref        string
		wantStatus int
	}{
		{"not found", "/download/missing", http.StatusNotFound},
		{"empty reference", "  ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, err := client.Retrieve(context.Background(), tt.ref)
			if artifact != nil {
				t.Errorf("expected no artifact")
			}
			var retErr *RetrievalError
			if !errors.As(err, &retErr) {
				t.Fatalf("expected *RetrievalError, got %T: %v", err, err)
			}
			if retErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", retErr.StatusCode, tt.wantStatus)
			}
		})
	}

	entries, err := os.ReadDir(client.tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no temp files left behind, found %d", len(entries))
	}
}

func TestArtifactName(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		ref         string
		want        string
	}{
		{"quoted filename", `attachment; filename="out.zip"`, "/download/1", "out.zip"},
		{"unquoted filename", `attachment; filename=out.zip`, "/download/1", "out.zip"},
		{"path traversal stripped", `attachment; filename="../../etc/out.zip"`, "/x", "out.zip"},
		{"windows path stripped", `attachment; filename="C:\\tmp\\out.zip"`, "/x", "out.zip"},
		{"no disposition, named reference", "", "/files/batch_42.zip", "batch_42.zip"},
		{"no disposition, opaque reference", "", "/download/abc123", DefaultArtifactName},
		{"malformed disposition", `attachment; filename="`, "/download/abc", DefaultArtifactName},
		{"root reference", "", "/", DefaultArtifactName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := url.Parse(tt.ref)
			if err != nil {
				t.Fatal(err)
			}
			if got := artifactName(tt.disposition, ref); got != tt.want {
				t.Errorf("artifactName(%q, %q) = %q, want %q", tt.disposition, tt.ref, got, tt.want)
			}
		})
	}
}
