package imagekit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lumina/internal/domain"
	"lumina/internal/upload"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		PublicKey:  "public_test",
		PrivateKey: "private_test",
		UploadURL:  srv.URL + "/api/v1/files/upload",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func putRequest(t *testing.T, c *Client) upload.PutRequest {
	t.Helper()
	creds, err := c.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return upload.PutRequest{
		File:        upload.File{Name: "cat.png", ContentType: "image/png", Body: strings.NewReader("png-bytes")},
		Folder:      "lumina-uploads",
		Credentials: creds,
	}
}

func TestPutSendsSignedMultipart(t *testing.T) {
	var got map[string]string
	var fileBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/files/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			fileBody = string(data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url":"https://ik.imagekit.io/demo/lumina-uploads/cat.png","fileId":"f_1"}`)
	})

	req := putRequest(t, client)
	asset, err := client.Put(context.Background(), req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if asset.URL != "https://ik.imagekit.io/demo/lumina-uploads/cat.png" || asset.FileID != "f_1" {
		t.Fatalf("asset = %+v", asset)
	}
	if fileBody != "png-bytes" {
		t.Fatalf("file body = %q", fileBody)
	}
	for _, key := range []string{"fileName", "folder", "publicKey", "signature", "expire", "token"} {
		if got[key] == "" {
			t.Fatalf("missing form field %q in %v", key, got)
		}
	}
	if got["folder"] != "lumina-uploads" || got["publicKey"] != "public_test" || got["token"] != req.Credentials.Token {
		t.Fatalf("form = %v", got)
	}
}

func TestPutCategorisesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"message":"Your request contains invalid expire parameter."}`, want: domain.ErrUploadInvalidRequest},
		{name: "unauthorised", status: http.StatusForbidden, body: `{}`, want: domain.ErrUploadInvalidRequest},
		{name: "server", status: http.StatusBadGateway, body: `oops`, want: domain.ErrUploadServerFault},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := client.Put(context.Background(), putRequest(t, client))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPutNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	client, err := NewClient(Options{PublicKey: "p", PrivateKey: "k", UploadURL: url})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Put(context.Background(), putRequest(t, client))
	if !errors.Is(err, domain.ErrUploadNetwork) {
		t.Fatalf("err = %v, want network", err)
	}
}

func TestNewClientRequiresKeys(t *testing.T) {
	if _, err := NewClient(Options{PublicKey: "p"}); !errors.Is(err, ErrMissingKeys) {
		t.Fatalf("err = %v", err)
	}
}

func TestIssueMatchesUploadAuthShape(t *testing.T) {
	client, err := NewClient(Options{PublicKey: "public_test", PrivateKey: "private_test"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	a, _ := client.Issue(context.Background())
	b, _ := client.Issue(context.Background())
	if a.Token == b.Token || a.Signature == b.Signature {
		t.Fatalf("credentials reused: %+v %+v", a, b)
	}
	if a.PublicKey != "public_test" || a.Expire == 0 {
		t.Fatalf("credentials = %+v", a)
	}
}
