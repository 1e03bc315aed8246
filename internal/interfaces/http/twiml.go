package http

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"net/http"
	"sort"
	"strings"
)

const (
	twimlContentType      = "text/xml; charset=utf-8"
	twilioSignatureHeader = "X-Twilio-Signature"
)

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// EncodeTwiML wraps text in a <Response><Message> envelope. Markup in text
// is escaped.
func EncodeTwiML(text string) ([]byte, error) {
	body, err := xml.Marshal(twimlResponse{Message: text})
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// TwilioVerifier checks X-Twilio-Signature on webhook requests
type TwilioVerifier struct {
	authToken  []byte
	webhookURL string
}

// NewTwilioVerifier returns nil when authToken is empty, which disables
// verification. webhookURL overrides the URL reconstructed from the request,
// needed behind proxies that rewrite the path.
func NewTwilioVerifier(authToken, webhookURL string) *TwilioVerifier {
	if authToken == "" {
		return nil
	}
	return &TwilioVerifier{authToken: []byte(authToken), webhookURL: webhookURL}
}

// Verify expects r.ParseForm to have been called
func (v *TwilioVerifier) Verify(r *http.Request) bool {
	signature := r.Header.Get(twilioSignatureHeader)
	if signature == "" {
		return false
	}
	expected := v.Sign(v.requestURL(r), r.PostForm)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes base64(HMAC-SHA1(url + sorted key/value pairs))
func (v *TwilioVerifier) Sign(url string, params map[string][]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(url)
	for _, k := range keys {
		for _, val := range params[k] {
			sb.WriteString(k)
			sb.WriteString(val)
		}
	}

	mac := hmac.New(sha1.New, v.authToken)
	mac.Write([]byte(sb.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (v *TwilioVerifier) requestURL(r *http.Request) string {
	if v.webhookURL != "" {
		return v.webhookURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
