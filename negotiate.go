package bdispatch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// SerializeFunc writes v to w in a specific content type.
type SerializeFunc func(ctx context.Context, rc *RequestContext, v any, w io.Writer) error

// Negotiator resolves content types to serializers.
type Negotiator interface {
	// Resolve returns the serializer for the content type or nil when there is none.
	Resolve(contentType string) SerializeFunc
	// Negotiate determines the response content type of a request.
	Negotiate(r *http.Request) string
}

type contentType struct {
	mime      string
	format    string
	serialize SerializeFunc
}

// ContentTypes is a registry of serializers. Negotiation picks the "format" query parameter first, then the
// first acceptable entry of the Accept header and finally the default content type.
type ContentTypes struct {
	types     []contentType
	defaultCT string
}

// NewContentTypes returns a registry with JSON, XML, HTML and plain text serializers.
func NewContentTypes(defaultCT string) *ContentTypes {
	c := &ContentTypes{defaultCT: defaultCT}
	c.Register("json", MimeJSON, SerializeJSON)
	c.Register("xml", MimeXML, SerializeXML)
	c.Register("html", MimeHTML, SerializeHTML)
	c.Register("text", MimePlainText, SerializeText)

	return c
}

// Register adds or replaces the serializer for a content type. The format is the value of the "format" query
// parameter that selects it.
func (c *ContentTypes) Register(format, mime string, fn SerializeFunc) {
	for i, ct := range c.types {
		if ct.mime == mime {
			c.types[i] = contentType{mime: mime, format: format, serialize: fn}
			return
		}
	}

	c.types = append(c.types, contentType{mime: mime, format: format, serialize: fn})
}

// Resolve implements [Negotiator]. Parameters such as the charset are ignored.
func (c *ContentTypes) Resolve(ct string) SerializeFunc {
	mt := MediaType(ct)
	for _, t := range c.types {
		if t.mime == mt {
			return t.serialize
		}
	}

	return nil
}

// Negotiate implements [Negotiator].
func (c *ContentTypes) Negotiate(r *http.Request) string {
	if format := r.URL.Query().Get("format"); format != "" {
		for _, t := range c.types {
			if strings.EqualFold(t.format, format) {
				return t.mime
			}
		}
	}

	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, q := acceptEntry(part)
		if mt == "" || q == "0" || q == "0.0" {
			continue
		}

		if mt == "*/*" {
			return c.defaultCT
		}

		for _, t := range c.types {
			if t.mime == mt {
				return t.mime
			}
		}
	}

	return c.defaultCT
}

func acceptEntry(part string) (mt, q string) {
	mt, params, _ := strings.Cut(strings.TrimSpace(part), ";")
	for _, p := range strings.Split(params, ";") {
		if k, v, ok := strings.Cut(strings.TrimSpace(p), "="); ok && k == "q" {
			q = v
		}
	}

	return strings.ToLower(strings.TrimSpace(mt)), q
}

// SerializeJSON writes v as JSON.
func SerializeJSON(_ context.Context, _ *RequestContext, v any, w io.Writer) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode json")
	}

	return nil
}

// SerializeXML writes v as XML.
func SerializeXML(_ context.Context, _ *RequestContext, v any, w io.Writer) error {
	if err := xml.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode xml")
	}

	return nil
}

// SerializeText writes v with its default formatting.
func SerializeText(_ context.Context, _ *RequestContext, v any, w io.Writer) error {
	_, err := fmt.Fprint(w, v)
	return err
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><pre>{{.Body}}</pre></body></html>
`))

// SerializeHTML renders v as an HTML page showing its indented JSON form.
func SerializeHTML(_ context.Context, rc *RequestContext, v any, w io.Writer) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode html report")
	}

	title := "Response"
	if rc != nil && rc.Operation != "" {
		title = rc.Operation
	}

	if err := htmlReport.Execute(w, struct{ Title, Body string }{title, string(body)}); err != nil {
		return errors.Wrap(err, "failed to render html report")
	}

	return nil
}

var _ Negotiator = &ContentTypes{}
