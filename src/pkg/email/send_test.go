package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessageDryRunSkipsProvider(t *testing.T) {
	send := false
	// An unknown provider would fail if it were ever resolved.
	e := SendMessage(context.Background(), Provider("carrier-pigeon"), &send, "report@example.com", []string{"a@example.com"}, "Report", "text", "", nil)
	if e != nil {
		t.Fatalf("dry run error = %v", e)
	}
}

func TestSendMessageValidation(t *testing.T) {
	send := false
	tests := []struct {
		name       string
		sender     string
		recipients []string
		text, html string
	}{
		{"no sender", " ", []string{"a@example.com"}, "text", ""},
		{"blank recipients", "report@example.com", []string{" ", ""}, "text", ""},
		{"empty bodies", "report@example.com", []string{"a@example.com"}, " ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := SendMessage(context.Background(), ProviderSES, &send, tt.sender, tt.recipients, "Report", tt.text, tt.html, nil)
			if e == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestSendMessageUnknownProvider(t *testing.T) {
	e := SendMessage(context.Background(), Provider("fax"), nil, "report@example.com", []string{"a@example.com"}, "Report", "text", "", nil)
	if e == nil {
		t.Fatal("expected an unknown provider error")
	}
}

func TestSendGridDelivery(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Header.Get("Authorization") != "Bearer sg-key" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("X-Message-Id", "sg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, e := newSendGridSender("sg-key", server.URL)
	if e != nil {
		t.Fatalf("newSendGridSender() error = %v", e)
	}
	message := Message{
		Sender:     "report@example.com",
		Recipients: []string{"a@example.com", "b@example.com"},
		Subject:    "Monthly impact",
		Text:       "plain",
		HTML:       "<p>html</p>",
		Tags:       []string{"monthly-report"},
	}
	messageID, err := client.send(context.Background(), message)
	if err != nil {
		t.Fatalf("send() error = %v", err)
	}
	if messageID != "sg-123" {
		t.Fatalf("message id = %q", messageID)
	}
	if received["subject"] != "Monthly impact" {
		t.Fatalf("subject = %v", received["subject"])
	}
	if content, _ := received["content"].([]any); len(content) != 2 {
		t.Fatalf("content = %v", received["content"])
	}
}

func TestSendGridRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"forbidden"}]}`, http.StatusForbidden)
	}))
	defer server.Close()

	client, _ := newSendGridSender("sg-key", server.URL)
	e := deliver(context.Background(), ProviderSendGrid, client, Message{Sender: "r@example.com", Recipients: []string{"a@example.com"}, Text: "x"})
	if e == nil {
		t.Fatal("expected 403 to fail delivery")
	}
}

func TestProviderConstructorsNeedCredentials(t *testing.T) {
	if _, e := newSendGridSender("", ""); e == nil {
		t.Error("sendgrid without key must fail")
	}
	if _, e := newMailgunSender("mg.example.com", "", ""); e == nil {
		t.Error("mailgun without key must fail")
	}
	if got := RequiredEnvVars(ProviderMailgun); len(got) != 2 {
		t.Errorf("mailgun env vars = %v", got)
	}
}
