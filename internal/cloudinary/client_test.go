package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUploadSignsAndDecodes(t *testing.T) {
	var form map[string]string
	var fileBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/image/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			b, _ := io.ReadAll(f)
			fileBody = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"public_id":"studentdesk/students/s1","secure_url":"https://res.example/s1.jpg","format":"jpg"}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "studentdesk", WithBaseURL(srv.URL))
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.Upload(context.Background(), strings.NewReader("jpeg-bytes"), "me.jpg", "students", "s1")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.SecureURL != "https://res.example/s1.jpg" {
		t.Fatalf("result = %+v", res)
	}
	if fileBody != "jpeg-bytes" {
		t.Fatalf("file body = %q", fileBody)
	}
	if form["api_key"] != "key" || form["folder"] != "studentdesk/students" || form["public_id"] != "s1" {
		t.Fatalf("form = %v", form)
	}

	sum := sha1.Sum([]byte("folder=studentdesk/students&overwrite=true&public_id=s1&timestamp=1700000000secret"))
	if form["signature"] != hex.EncodeToString(sum[:]) {
		t.Fatalf("signature = %q", form["signature"])
	}
}

func TestUploadSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "bad", "", WithBaseURL(srv.URL))
	_, err := c.UploadDataURL(context.Background(), "data:image/png;base64,AAAA", "", "")
	if err == nil || !strings.Contains(err.Error(), "Invalid Signature") || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
}
