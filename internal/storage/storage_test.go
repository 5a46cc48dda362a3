package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lumina/internal/domain"
	"lumina/internal/upload"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b.png", want: "a/b.png"},
		{in: "/lumina-uploads/x.png", want: "lumina-uploads/x.png"},
		{in: `.\win\path.jpg`, want: "win/path.jpg"},
		{in: "../escape.png", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestFileStorePutVerifiesCredentials(t *testing.T) {
	signer, err := upload.NewHMACSigner("pub", "priv", time.Minute)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/", signer)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	creds, _ := signer.Issue(context.Background())
	asset, err := store.Put(context.Background(), upload.PutRequest{
		File:        upload.File{Name: "Cat.PNG", ContentType: "image/png", Body: strings.NewReader("img")},
		Folder:      "lumina-uploads",
		Credentials: creds,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(asset.URL, "http://localhost:8080/static/lumina-uploads/") || !strings.HasSuffix(asset.URL, ".png") {
		t.Fatalf("url = %q", asset.URL)
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(asset.FileID)))
	if err != nil || string(data) != "img" {
		t.Fatalf("stored = %q, %v", data, err)
	}

	creds.Signature = "forged"
	_, err = store.Put(context.Background(), upload.PutRequest{
		File:        upload.File{Name: "x.png", Body: strings.NewReader("img")},
		Credentials: creds,
	})
	if !errors.Is(err, domain.ErrUploadInvalidRequest) {
		t.Fatalf("forged credentials: err = %v", err)
	}
}

func TestExtensionFor(t *testing.T) {
	if got := extensionFor(upload.File{Name: "photo.JPG"}); got != ".jpg" {
		t.Fatalf("ext = %q", got)
	}
	if got := extensionFor(upload.File{Name: "blob"}); got != "" {
		t.Fatalf("ext without type = %q", got)
	}
}

type s3Fake struct {
	mu     sync.Mutex
	path   string
	body   string
	ctype  string
	status int
}

func (f *s3Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data, _ := io.ReadAll(r.Body)
	f.path = r.URL.Path
	f.body = string(data)
	f.ctype = r.Header.Get("Content-Type")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
}

func newS3Store(t *testing.T, fake *s3Fake) *S3Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	store, err := NewS3Store(context.Background(), S3Options{
		Region:          "eu-west-3",
		Bucket:          "lumina",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Endpoint:        srv.URL,
		PublicBaseURL:   "https://cdn.example.com/",
		HTTPClient:      srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	return store
}

func TestS3StorePresignedUpload(t *testing.T) {
	fake := &s3Fake{}
	store := newS3Store(t, fake)

	creds, err := store.Issue(context.Background())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(creds.Token, "lumina-uploads/") || !strings.Contains(creds.Signature, "X-Amz-Signature=") {
		t.Fatalf("credentials = %+v", creds)
	}
	asset, err := store.Put(context.Background(), upload.PutRequest{
		File:        upload.File{Name: "cat.png", ContentType: "image/png", Body: strings.NewReader("img")},
		Credentials: creds,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if asset.URL != "https://cdn.example.com/"+creds.Token {
		t.Fatalf("url = %q", asset.URL)
	}
	if fake.path != "/lumina/"+creds.Token || fake.body != "img" || fake.ctype != "image/png" {
		t.Fatalf("fake saw path=%q body=%q type=%q", fake.path, fake.body, fake.ctype)
	}
}

func TestS3StoreCategorisesStatus(t *testing.T) {
	fake := &s3Fake{status: http.StatusForbidden}
	store := newS3Store(t, fake)
	creds, _ := store.Issue(context.Background())
	_, err := store.Put(context.Background(), upload.PutRequest{
		File:        upload.File{Body: strings.NewReader("img")},
		Credentials: creds,
	})
	if !errors.Is(err, domain.ErrUploadInvalidRequest) {
		t.Fatalf("err = %v", err)
	}

	fake.mu.Lock()
	fake.status = http.StatusServiceUnavailable
	fake.mu.Unlock()
	creds, _ = store.Issue(context.Background())
	_, err = store.Put(context.Background(), upload.PutRequest{
		File:        upload.File{Body: strings.NewReader("img")},
		Credentials: creds,
	})
	if !errors.Is(err, domain.ErrUploadServerFault) {
		t.Fatalf("err = %v", err)
	}
}
