package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		JSON   string                `json:"json"`
		Field  string                `json:"field"`
		Fields []handlers.FieldError `json:"fields"`
	} `json:"details"`
}

func bindEchoRouter() *gin.Engine {
	r := gin.New()

	r.POST("/auth", func(ctx *gin.Context) {
		var req handlers.AuthRequest
		if !handlers.BindMappedJSON(ctx, &req, map[string]string{
			"country-code": "country_code",
			"countryCode":  "country_code",
		}) {
			return
		}
		ctx.JSON(http.StatusOK, req)
	})

	return r
}

func postJSON(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestBindMappedJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := bindEchoRouter()

	w := postJSON(t, r, `{"email":"a@b.com"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Status != "error" {
		t.Fatalf("unexpected status: %s", resp.Status)
	}

	wantRules := map[string]string{
		"event": "required",
		"mode":  "required",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindMappedJSON_SyntaxError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := bindEchoRouter()

	w := postJSON(t, r, `{"event":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}

	if resp.Details.JSON != "invalid_json_syntax" {
		t.Fatalf("expected invalid_json_syntax, got %q", resp.Details.JSON)
	}
}

func TestBindMappedJSON_AliasRemapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := bindEchoRouter()

	tests := []struct {
		name            string
		body            string
		wantCountryCode string
	}{
		{
			name:            "kebab_alias",
			body:            `{"event":"login","mode":"mobile","mobile":"5550001111","country-code":"+1","passcode":"123456"}`,
			wantCountryCode: "+1",
		},
		{
			name:            "camel_alias",
			body:            `{"event":"login","mode":"mobile","mobile":"5550001111","countryCode":"+44","passcode":"123456"}`,
			wantCountryCode: "+44",
		},
		{
			name:            "canonical_key_wins_over_alias",
			body:            `{"event":"login","mode":"mobile","mobile":"5550001111","country_code":"+1","country-code":"+99","passcode":"123456"}`,
			wantCountryCode: "+1",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, tt.body)

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
			}

			var req handlers.AuthRequest

			if err := json.Unmarshal(w.Body.Bytes(), &req); err != nil {
				t.Fatalf("failed to unmarshal echoed request: %v", err)
			}

			if req.CountryCode != tt.wantCountryCode {
				t.Fatalf("got country code %q, want %q", req.CountryCode, tt.wantCountryCode)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw            string
		wantChannel    handlers.Channel
		wantCredential handlers.Credential
		wantErr        bool
	}{
		{raw: "email", wantChannel: handlers.ChannelEmail, wantCredential: handlers.CredentialOTP},
		{raw: "mobile", wantChannel: handlers.ChannelMobile, wantCredential: handlers.CredentialOTP},
		{raw: "email:password", wantChannel: handlers.ChannelEmail, wantCredential: handlers.CredentialPassword},
		{raw: "mobile:otp", wantChannel: handlers.ChannelMobile, wantCredential: handlers.CredentialOTP},
		{raw: " email:password ", wantChannel: handlers.ChannelEmail, wantCredential: handlers.CredentialPassword},
		{raw: "fax", wantErr: true},
		{raw: "email:magnet", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		mode, err := handlers.ParseMode(tt.raw)

		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseMode(%q): expected an error", tt.raw)
			}
			continue
		}

		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tt.raw, err)
		}

		if mode.Channel != tt.wantChannel || mode.Credential != tt.wantCredential {
			t.Fatalf("ParseMode(%q) = %+v", tt.raw, mode)
		}
	}
}
