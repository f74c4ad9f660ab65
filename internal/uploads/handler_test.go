package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/shared/server/middleware"
	"legalreview-backend/internal/shared/storage/object"
)

func testPresigner() *s3.PresignClient {
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
	}
	return s3.NewPresignClient(s3.NewFromConfig(cfg))
}

func TestPresignSignedHeadersExcludeContentLength(t *testing.T) {
	out, err := testPresigner().PresignPutObject(context.Background(), presignInput("bucket", "reviews/abc/2026/01/01/x_file.pdf", "application/pdf"))
	if err != nil {
		t.Fatalf("presign: %v", err)
	}

	parsed, err := url.Parse(out.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	signed := parsed.Query().Get("X-Amz-SignedHeaders")
	if signed == "" {
		t.Fatalf("expected X-Amz-SignedHeaders")
	}
	if strings.Contains(signed, "content-length") {
		t.Fatalf("unexpected content-length in signed headers: %s", signed)
	}
	if !strings.Contains(signed, "host") {
		t.Fatalf("expected host in signed headers: %s", signed)
	}
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/presign", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "42")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPresignReturnsOwnedKey(t *testing.T) {
	r := newRouter(newHandler(testPresigner(), "bucket", "reviews/"))

	resp := post(r, `{"fileName":"master services agreement.pdf","contentType":"application/pdf","sizeBytes":2048}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out presignResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !object.OwnedBy(out.ObjectKey, "user:42") {
		t.Fatalf("key %q is not in the caller namespace", out.ObjectKey)
	}
	if object.FileName(out.ObjectKey) != "master services agreement.pdf" {
		t.Fatalf("unexpected key %q", out.ObjectKey)
	}
	if !strings.Contains(out.UploadURL, "/reviews/") || out.ExpiresInSeconds != 900 {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestPresignValidation(t *testing.T) {
	r := newRouter(newHandler(testPresigner(), "bucket", ""))
	cases := []struct {
		body string
		want int
	}{
		{`{"contentType":"application/pdf","sizeBytes":10}`, http.StatusBadRequest},
		{`{"fileName":"a.exe","contentType":"application/x-msdownload","sizeBytes":10}`, http.StatusUnsupportedMediaType},
		{`{"fileName":"a.pdf","contentType":"application/pdf","sizeBytes":0}`, http.StatusBadRequest},
		{`{"fileName":"a.pdf","contentType":"application/pdf","sizeBytes":99999999999}`, http.StatusBadRequest},
		{`{"fileName":"../a.pdf","contentType":"application/pdf","sizeBytes":10}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if resp := post(r, tc.body); resp.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.body, tc.want, resp.Code)
		}
	}
}
