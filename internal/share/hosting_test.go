package share

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snapbooth/boothd/internal/config"
)

func TestZeroXZeroUpload(t *testing.T) {
	var gotAgent, gotExpires, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotAgent = r.Header.Get("User-Agent")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		gotExpires = r.FormValue("expires")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		file.Close()
		gotFilename = header.Filename

		w.Write([]byte("https://0x0.st/abcd.jpg\n"))
	}))
	defer srv.Close()

	z := NewZeroXZero(config.ZeroXZeroConfig{
		Endpoint:     srv.URL,
		UserAgent:    "boothd-test/1.0",
		ExpiresHours: 24,
		Timeout:      5 * time.Second,
	})

	link, err := z.Upload(context.Background(), []byte("jpegdata"), "strip.jpg")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if link != "https://0x0.st/abcd.jpg" {
		t.Errorf("Upload() = %q, want trimmed link", link)
	}
	if gotAgent != "boothd-test/1.0" {
		t.Errorf("User-Agent = %q, want custom agent", gotAgent)
	}
	if gotExpires != "24" {
		t.Errorf("expires field = %q, want %q", gotExpires, "24")
	}
	if gotFilename != "strip.jpg" {
		t.Errorf("filename = %q, want %q", gotFilename, "strip.jpg")
	}
}

func TestZeroXZeroUploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
	}{
		{"rejected status", http.StatusForbidden, "blocked"},
		{"non-url body", http.StatusOK, "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			z := NewZeroXZero(config.ZeroXZeroConfig{Endpoint: srv.URL, UserAgent: "t", Timeout: 5 * time.Second})
			if _, err := z.Upload(context.Background(), []byte("x"), "x.jpg"); err == nil {
				t.Error("Upload() error = nil, want error")
			}
		})
	}
}

func TestImgBBUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "secret-key" {
			t.Errorf("key = %q, want %q", got, "secret-key")
		}
		if got := r.URL.Query().Get("expiration"); got != "86400" {
			t.Errorf("expiration = %q, want %q", got, "86400")
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(r.PostFormValue("image"))
		if err != nil {
			t.Fatalf("image field is not base64: %v", err)
		}
		if string(decoded) != "jpegdata" {
			t.Errorf("decoded image = %q, want %q", decoded, "jpegdata")
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":    map[string]string{"url": "https://i.ibb.co/abcd/strip.jpg"},
			"success": true,
		})
	}))
	defer srv.Close()

	i := NewImgBB(config.ImgBBConfig{
		Endpoint:          srv.URL,
		APIKey:            "secret-key",
		ExpirationSeconds: 86400,
		Timeout:           5 * time.Second,
	})

	link, err := i.Upload(context.Background(), []byte("jpegdata"), "strip.jpg")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if link != "https://i.ibb.co/abcd/strip.jpg" {
		t.Errorf("Upload() = %q, want api url", link)
	}
}

func TestImgBBUploadNotAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
	}))
	defer srv.Close()

	i := NewImgBB(config.ImgBBConfig{Endpoint: srv.URL, APIKey: "k", Timeout: 5 * time.Second})
	if _, err := i.Upload(context.Background(), []byte("x"), "x.jpg"); err == nil {
		t.Error("Upload() error = nil, want error")
	}
}

func TestFormatExpiry(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{86400, "1 day"},
		{86400 * 30, "30 days"},
		{3600, "1 hour"},
		{3600 * 6, "6 hours"},
		{90, "90 seconds"},
		{0, "unknown"},
	}

	for _, tt := range tests {
		if got := formatExpiry(tt.seconds); got != tt.want {
			t.Errorf("formatExpiry(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
