package telephony

import (
	"encoding/xml"
	"strings"
)

// Response is a call-control document. Verbs render in insertion order.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type Say struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type Pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr,omitempty"`
}

type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type Play struct {
	XMLName xml.Name `xml:"Play"`
	Loop    int      `xml:"loop,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

type Enqueue struct {
	XMLName xml.Name `xml:"Enqueue"`
	WaitURL string   `xml:"waitUrl,attr,omitempty"`
	Name    string   `xml:",chardata"`
}

type Dial struct {
	XMLName  xml.Name `xml:"Dial"`
	Action   string   `xml:"action,attr,omitempty"`
	Timeout  int      `xml:"timeout,attr,omitempty"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	Queue    *Queue
}

type Queue struct {
	XMLName xml.Name `xml:"Queue"`
	Name    string   `xml:",chardata"`
}

func (r *Response) Say(text string) *Response {
	r.Verbs = append(r.Verbs, Say{Text: text})
	return r
}

func (r *Response) Pause(length int) *Response {
	r.Verbs = append(r.Verbs, Pause{Length: length})
	return r
}

func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, Hangup{})
	return r
}

func (r *Response) Play(url string, loop int) *Response {
	r.Verbs = append(r.Verbs, Play{URL: url, Loop: loop})
	return r
}

func (r *Response) Redirect(url string) *Response {
	r.Verbs = append(r.Verbs, Redirect{Method: "POST", URL: url})
	return r
}

func (r *Response) Enqueue(name, waitURL string) *Response {
	r.Verbs = append(r.Verbs, Enqueue{Name: name, WaitURL: waitURL})
	return r
}

func (r *Response) DialQueue(queue, action string, timeout int, callerID string) *Response {
	r.Verbs = append(r.Verbs, Dial{
		Action:   action,
		Timeout:  timeout,
		CallerID: callerID,
		Queue:    &Queue{Name: queue},
	})
	return r
}

// Render produces the XML document with declaration.
func (r *Response) Render() (string, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return "", err
	}
	return xml.Header + string(body), nil
}

// NoActiveEmergency instructs a call leg to apologize and end when there is
// nothing to route it to.
func NoActiveEmergency() *Response {
	resp := &Response{}
	return resp.
		Say("We're sorry, there is no active emergency to connect you to. Goodbye.").
		Hangup()
}

// Apology ends a call after speaking msg; used when routing configuration is
// invalid and the caller must not be enqueued.
func Apology(msg string) *Response {
	resp := &Response{}
	return resp.Say(msg).Hangup()
}

// HoldInQueue parks the caller in a named queue with hold audio.
func HoldInQueue(queue, waitURL, msg string) *Response {
	resp := &Response{}
	return resp.Say(msg).Enqueue(queue, waitURL)
}

// BridgeIntoQueue announces and then dials a new leg into the named hold
// queue, which connects it to the waiting caller.
func BridgeIntoQueue(queue, announcement, action string, timeout int, callerID string) *Response {
	resp := &Response{}
	return resp.Say(announcement).DialQueue(queue, action, timeout, callerID)
}

// SpokenNumber spaces out the digits of a phone number so text-to-speech
// reads them one at a time.
func SpokenNumber(number string) string {
	var parts []string
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9':
			parts = append(parts, string(r))
		case r == '+':
			parts = append(parts, "plus")
		}
	}
	return strings.Join(parts, ", ")
}
