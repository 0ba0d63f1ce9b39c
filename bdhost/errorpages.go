package bdhost

import (
	"context"
	"html/template"
	"net/http"

	intervals "github.com/MawKKe/integer-interval-expressions-go"
	"github.com/advdv/bdispatch"
	"github.com/cockroachdb/errors"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Status}} {{.StatusText}}</title></head>
<body>
<h1>{{.Status}} {{.StatusText}}</h1>
<p>{{.Error.ErrorCode}}{{with .Error.Message}}: {{.}}{{end}}</p>
{{- with .Error.StackTrace}}
<pre>{{.}}</pre>
{{- end}}
<footer>{{.Service}}</footer>
</body>
</html>
`))

// ErrorPages renders HTML error pages for the statuses selected by an integer interval expression.
type ErrorPages struct {
	service  string
	statuses []int
}

// NewErrorPages parses expr, e.g. "404,500-599". Only error statuses (400-599) are considered. An empty
// expression selects no statuses.
func NewErrorPages(service, expr string) (*ErrorPages, error) {
	pages := &ErrorPages{service: service}
	if expr == "" {
		return pages, nil
	}

	parsed, err := intervals.ParseExpression(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid html error page codes %q", expr)
	}

	for status := http.StatusBadRequest; status < 600; status++ {
		if parsed.Matches(status) {
			pages.statuses = append(pages.statuses, status)
		}
	}

	return pages, nil
}

// Statuses returns the statuses that get an error page, in ascending order.
func (p *ErrorPages) Statuses() []int { return append([]int(nil), p.statuses...) }

// ServeError implements [bdispatch.ErrorHandler].
func (p *ErrorPages) ServeError(_ context.Context, _ *bdispatch.RequestContext, w bdispatch.Sink,
	dto *bdispatch.ErrorResponse,
) error {
	w.SetContentType(bdispatch.MimeHTML + bdispatch.UTF8Suffix)

	return errorPage.Execute(w, struct {
		Status     int
		StatusText string
		Error      bdispatch.ResponseStatus
		Service    string
	}{
		Status:     w.Status(),
		StatusText: http.StatusText(w.Status()),
		Error:      dto.ResponseStatus,
		Service:    p.service,
	})
}

// ConfigOptions registers the pages as error handlers.
func (p *ErrorPages) ConfigOptions() []bdispatch.ConfigOption {
	opts := make([]bdispatch.ConfigOption, 0, len(p.statuses))
	for _, status := range p.statuses {
		opts = append(opts, bdispatch.WithErrorHandler(status, p))
	}

	return opts
}
