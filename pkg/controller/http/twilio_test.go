package http_test

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/surana-mudit/whatsapp-memory-assistant/pkg/controller/http"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/repository/memory"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/usecase"
)

func computeTwilioSignature(authToken, requestURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(requestURL)
	for _, k := range keys {
		for _, v := range params[k] {
			sb.WriteString(k)
			sb.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(sb.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookForm(sid, body string) url.Values {
	return url.Values{
		"From":       {"whatsapp:+14155551234"},
		"To":         {"whatsapp:+14155550000"},
		"MessageSid": {sid},
		"Body":       {body},
		"NumMedia":   {"0"},
	}
}

func postWebhook(t *testing.T, srv *httpctrl.Server, form url.Values, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "http://example.com/hooks/twilio/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestVerifyTwilioSignature(t *testing.T) {
	authToken := "test-auth-token"
	requestURL := "https://example.com/hooks/twilio/"
	params := webhookForm("SM1234567890", "remember to buy milk")

	t.Run("valid signature", func(t *testing.T) {
		sig := computeTwilioSignature(authToken, requestURL, params)
		gt.NoError(t, httpctrl.VerifyTwilioSignature(authToken, requestURL, params, sig))
	})

	t.Run("invalid signature", func(t *testing.T) {
		gt.Error(t, httpctrl.VerifyTwilioSignature(authToken, requestURL, params, "bogus"))
	})

	t.Run("missing signature", func(t *testing.T) {
		gt.Error(t, httpctrl.VerifyTwilioSignature(authToken, requestURL, params, ""))
	})

	t.Run("signature over different params", func(t *testing.T) {
		sig := computeTwilioSignature(authToken, requestURL, webhookForm("SM999", "tampered"))
		gt.Error(t, httpctrl.VerifyTwilioSignature(authToken, requestURL, params, sig))
	})
}

func TestWebhookURL(t *testing.T) {
	t.Run("forwarded proto wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://example.com/hooks/twilio/", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		gt.Value(t, httpctrl.WebhookURL(req)).Equal("https://example.com/hooks/twilio/")
	})

	t.Run("plain http", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://example.com/hooks/twilio/", nil)
		gt.Value(t, httpctrl.WebhookURL(req)).Equal("http://example.com/hooks/twilio/")
	})
}

func TestTwilioWebhookText(t *testing.T) {
	uc := usecase.New(memory.New())
	srv := httpctrl.New(uc)

	rec := postWebhook(t, srv, webhookForm("SM0001", "parked my car on level 3"), nil)

	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, rec.Header().Get("Content-Type")).Equal("text/xml")

	body := rec.Body.String()
	gt.Bool(t, strings.Contains(body, "<Response>")).True()
	gt.Bool(t, strings.Contains(body, "<Message>")).True()
	gt.Bool(t, strings.Contains(body, "saved your message to memory")).True()
}

func TestTwilioWebhookDuplicate(t *testing.T) {
	uc := usecase.New(memory.New())
	srv := httpctrl.New(uc)

	form := webhookForm("SM0002", "the wifi password is hunter2")
	first := postWebhook(t, srv, form, nil)
	gt.Value(t, first.Code).Equal(http.StatusOK)

	second := postWebhook(t, srv, form, nil)
	gt.Value(t, second.Code).Equal(http.StatusOK)
	gt.Bool(t, strings.Contains(second.Body.String(), "Message processed successfully!")).True()
}

func TestTwilioWebhookMissingFields(t *testing.T) {
	uc := usecase.New(memory.New())
	srv := httpctrl.New(uc)

	rec := postWebhook(t, srv, url.Values{"Body": {"no sender"}}, nil)
	gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestTwilioWebhookMedia(t *testing.T) {
	uc := usecase.New(memory.New())
	srv := httpctrl.New(uc)

	form := webhookForm("SM0003", "")
	form.Set("NumMedia", "1")
	form.Set("MediaUrl0", "https://api.twilio.com/media/ME123")
	form.Set("MediaContentType0", "image/jpeg")

	rec := postWebhook(t, srv, form, nil)

	// Media replies go out of band; the webhook acknowledges with an
	// empty TwiML response.
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Bool(t, strings.Contains(rec.Body.String(), "<Message>")).False()
	gt.Bool(t, strings.Contains(rec.Body.String(), "Response")).True()
}

func TestTwilioWebhookSignatureEnforced(t *testing.T) {
	authToken := "test-auth-token"
	uc := usecase.New(memory.New())
	srv := httpctrl.New(uc, httpctrl.WithTwilioAuthToken(authToken))

	form := webhookForm("SM0004", "call the dentist tomorrow")

	t.Run("rejects unsigned request", func(t *testing.T) {
		rec := postWebhook(t, srv, form, nil)
		gt.Value(t, rec.Code).Equal(http.StatusForbidden)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		rec := postWebhook(t, srv, form, func(req *http.Request) {
			req.Header.Set("X-Twilio-Signature", "not-a-real-signature")
		})
		gt.Value(t, rec.Code).Equal(http.StatusForbidden)
	})

	t.Run("accepts signed request", func(t *testing.T) {
		sig := computeTwilioSignature(authToken, "http://example.com/hooks/twilio/", form)
		rec := postWebhook(t, srv, form, func(req *http.Request) {
			req.Header.Set("X-Twilio-Signature", sig)
		})
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Bool(t, strings.Contains(rec.Body.String(), "saved your message")).True()
	})
}
