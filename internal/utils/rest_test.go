package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondWithErrorKind(t *testing.T) {
	tests := []struct {
		name string
		code int
		kind string
		msg  string
		want string
	}{
		{
			name: "invalid model",
			code: http.StatusBadRequest,
			kind: "invalid_model",
			msg:  "Invalid provider/model combination: openai/gpt-z",
			want: `{"error":"Invalid provider/model combination: openai/gpt-z","kind":"invalid_model"}` + "\n",
		},
		{
			name: "provider failure",
			code: http.StatusBadGateway,
			kind: "provider_failure",
			msg:  "provider openai failed: status 500",
			want: `{"error":"provider openai failed: status 500","kind":"provider_failure"}` + "\n",
		},
		{
			name: "empty kind is omitted",
			code: http.StatusNotFound,
			msg:  "Rule not found",
			want: `{"error":"Rule not found"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithErrorKind(w, tt.code, tt.kind, tt.msg)

			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}
			if got := w.Body.String(); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRespondWithError_NoKind(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if got, want := w.Body.String(), `{"error":"Method not allowed"}`+"\n"; got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestRespondWithJSON_RuleTuples(t *testing.T) {
	w := httptest.NewRecorder()
	rules := [][]any{
		{int64(1), "gpt-4o", "^gpt-4o$", "gpt-4o-mini"},
		{int64(2), "gemini-pro", "(?i)image", "gemini-pro-vision"},
	}

	if err := RespondWithJSON(w, http.StatusOK, rules); err != nil {
		t.Fatalf("RespondWithJSON() error = %v", err)
	}

	want := `[[1,"gpt-4o","^gpt-4o$","gpt-4o-mini"],[2,"gemini-pro","(?i)image","gemini-pro-vision"]]` + "\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestRespondWithJSON_UnencodablePayload(t *testing.T) {
	w := httptest.NewRecorder()
	if err := RespondWithJSON(w, http.StatusOK, map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("RespondWithJSON() error = nil, want encode error")
	}
}
