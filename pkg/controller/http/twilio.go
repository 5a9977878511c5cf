package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/twilio"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/async"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/errutil"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

// verifyTwilioSignature checks the X-Twilio-Signature header value
// against the request URL and form parameters. Twilio signs the full
// URL followed by every POST parameter name and value concatenated in
// key order, HMAC-SHA1 with the account auth token, base64 encoded.
func verifyTwilioSignature(authToken, requestURL string, params url.Values, signature string) error {
	if signature == "" {
		return goerr.New("missing X-Twilio-Signature header")
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(requestURL)
	for _, k := range keys {
		for _, v := range params[k] {
			buf.WriteString(k)
			buf.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write(buf.Bytes())
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return goerr.New("invalid X-Twilio-Signature",
			goerr.V("url", requestURL),
		)
	}

	return nil
}

// webhookURL reconstructs the public URL Twilio signed. The scheme
// comes from X-Forwarded-Proto when a proxy terminates TLS.
func webhookURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// TwilioSignatureMiddleware verifies each request's X-Twilio-Signature
// before the webhook handler runs
func TwilioSignatureMiddleware(authToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to read webhook body"), http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewBuffer(body))

			params, err := url.ParseQuery(string(body))
			if err != nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to parse webhook form"), http.StatusBadRequest)
				return
			}

			signature := r.Header.Get("X-Twilio-Signature")
			if err := verifyTwilioSignature(authToken, webhookURL(r), params, signature); err != nil {
				errutil.HandleHTTP(r.Context(), w, err, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func inboundFromForm(r *http.Request) *model.InboundMessage {
	numMedia, _ := strconv.Atoi(r.FormValue("NumMedia"))

	return &model.InboundMessage{
		From:             r.FormValue("From"),
		To:               r.FormValue("To"),
		MessageSID:       types.MessageSID(r.FormValue("MessageSid")),
		Body:             r.FormValue("Body"),
		NumMedia:         numMedia,
		MediaURL:         r.FormValue("MediaUrl0"),
		MediaContentType: r.FormValue("MediaContentType0"),
	}
}

// twilioWebhookHandler receives WhatsApp messages. Text messages are
// answered synchronously in the TwiML response. Media messages can
// take longer than the webhook timeout to download and transcribe, so
// the handler acknowledges with an empty TwiML and replies later
// through the message sender.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse webhook form"), http.StatusBadRequest)
		return
	}

	msg := inboundFromForm(r)
	if msg.From == "" || msg.MessageSID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("webhook missing From or MessageSid",
			goerr.V("from", msg.From),
		), http.StatusBadRequest)
		return
	}

	logging.From(ctx).Info("received whatsapp message",
		"sid", msg.MessageSID,
		"type", msg.MessageType(),
		"num_media", msg.NumMedia,
	)

	if msg.MessageType() == types.MessageTypeText {
		reply, err := s.uc.HandleInbound(ctx, msg)
		if err != nil {
			errutil.Handle(ctx, err, "failed to handle inbound message")
		}
		respondTwiML(w, reply)
		return
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		return s.uc.ProcessAndReply(ctx, msg)
	})
	respondTwiML(w, "")
}

func respondTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(twilio.TwiML(message))) //nolint:errcheck // header already committed
}
