package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/restops/schema"
)

const userSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string"}
	}
}`

func TestResponseSchemaValidation(t *testing.T) {
	validator := schema.NewValidator()
	if err := validator.Register("user", []byte(userSchema)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/aims/v1/good":
			w.Write([]byte(`{"id":"u1"}`))
		default:
			w.Write([]byte(`{"name":"missing id"}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, func(cfg *Config) { cfg.Validator = validator })

	good := Request{ServiceName: "aims", Version: "v1", Path: "good", Schema: "user"}
	if _, err := c.Get(context.Background(), good); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	bad := Request{ServiceName: "aims", Version: "v1", Path: "bad", Schema: "user"}
	_, err := c.Get(context.Background(), bad)
	if err == nil {
		t.Fatal("invalid payload accepted")
	}
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %T %v, want *schema.ValidationError", err, err)
	}
	if verr.Schema != "user" {
		t.Errorf("failing schema = %q, want user", verr.Schema)
	}
}
