package twilio

import "encoding/xml"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// TwiML renders a messaging webhook reply. An empty message produces a
// bare <Response/>, which tells the transport not to reply.
func TwiML(message string) string {
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		// Marshaling a string field cannot fail; keep the webhook alive
		// anyway.
		return xml.Header + "<Response></Response>"
	}
	return xml.Header + string(out)
}
