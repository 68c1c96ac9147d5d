package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/catsite05/novelvoice/config"
	"github.com/catsite05/novelvoice/domain"
)

func oracleConfigFor(url string) *config.OracleConfig {
	return &config.OracleConfig{
		APIURL:  url,
		APIKey:  "test-key",
		Model:   "gpt-3.5-turbo",
		Timeout: 5 * time.Second,
	}
}

func completionsReply(content string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(payload)
}

func TestLLMScriptOracle_ParsesReplyWithSurroundingProse(t *testing.T) {
	reply := "Here is your script:\n" +
		`{"charactors":[{"name":"Chen","gender":"Male","personalities":"Professional"}],` +
		`"segments":[{"charactor":"narrator","text":"The rain kept falling."},` +
		`{"charactor":"Chen","rate":"+10%","text":"We should go."}]}` +
		"\nLet me know if you need changes."

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing bearer token")
		}
		w.Write([]byte(completionsReply(reply)))
	}))
	defer server.Close()

	oracle := NewLLMScriptOracle(NewZerologWrapper(), oracleConfigFor(server.URL))

	script, err := oracle.GenerateScript(context.Background(), "chapter text")
	if err != nil {
		t.Fatal("generate failed:", err)
	}
	if len(script.Speakers) != 1 || script.Speakers[0].Name != "Chen" {
		t.Fatalf("wrong speakers: %+v", script.Speakers)
	}
	if len(script.Spans) != 2 || script.Spans[1].Rate != "+10%" {
		t.Fatalf("wrong spans: %+v", script.Spans)
	}
}

func TestLLMScriptOracle_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	oracle := NewLLMScriptOracle(NewZerologWrapper(), oracleConfigFor(server.URL))

	_, err := oracle.GenerateScript(context.Background(), "chapter text")
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsTransient(err) {
		t.Fatal("503 not classified transient:", err)
	}
	if domain.KindOf(err, "") != domain.ErrorKindOracle {
		t.Fatal("wrong error kind:", err)
	}
}

func TestLLMScriptOracle_AuthErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	oracle := NewLLMScriptOracle(NewZerologWrapper(), oracleConfigFor(server.URL))

	_, err := oracle.GenerateScript(context.Background(), "chapter text")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsTransient(err) {
		t.Fatal("401 classified transient:", err)
	}
}

func TestLLMScriptOracle_GarbageReplyIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionsReply("no json here at all")))
	}))
	defer server.Close()

	oracle := NewLLMScriptOracle(NewZerologWrapper(), oracleConfigFor(server.URL))

	_, err := oracle.GenerateScript(context.Background(), "chapter text")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsTransient(err) {
		t.Fatal("unparseable reply classified transient:", err)
	}
}

func TestCleanForJSON_StripsControlCharacters(t *testing.T) {
	dirty := "{\"a\":\x01\"b\u200b\"}\r\n"
	if got := cleanForJSON(dirty); got != "{\"a\":\"b\"}\r\n" {
		t.Fatalf("unexpected cleaned string: %q", got)
	}
}
