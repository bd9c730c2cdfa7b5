package stream

import (
	"bufio"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"iot-fabric/internal/errs"
)

const maxRequestBytes = 4096

// request is a manually parsed HTTP request line plus headers. The
// service only ever handles GET /stream, so no body parsing is needed.
type request struct {
	Method  string
	Target  string
	Version string
	Headers map[string]string
}

// readRequest reads up to maxRequestBytes from r and parses the request
// line and header lines into a case-preserving map. Malformed input is
// reported as an errs.Input error.
func readRequest(r *bufio.Reader) (*request, error) {
	limited := &limitedReader{r: r, remaining: maxRequestBytes}

	line, err := limited.readLine()
	if err != nil {
		return nil, errs.New(errs.Input, "reading request line", err)
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, errs.New(errs.Input, "malformed request line: "+line, nil)
	}

	req := &request{
		Method:  parts[0],
		Target:  parts[1],
		Version: strings.TrimSpace(parts[2]),
		Headers: make(map[string]string),
	}

	for {
		line, err := limited.readLine()
		if err != nil {
			return nil, errs.New(errs.Input, "reading headers", err)
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !httpguts.ValidHeaderFieldName(strings.TrimSpace(name)) {
			return nil, errs.New(errs.Input, "malformed header line: "+line, nil)
		}
		req.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return req, nil
}

// tokenParam extracts the token query parameter from the request
// target, if present.
func (r *request) tokenParam() string {
	u, err := url.Parse(r.Target)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

type limitedReader struct {
	r         *bufio.Reader
	remaining int
}

func (l *limitedReader) readLine() (string, error) {
	var sb strings.Builder
	for {
		if l.remaining <= 0 {
			return "", errs.New(errs.Input, "request exceeds 4kB", nil)
		}
		b, err := l.r.ReadByte()
		if err != nil {
			return "", err
		}
		l.remaining--
		if b == '\n' {
			s := sb.String()
			return strings.TrimSuffix(s, "\r"), nil
		}
		sb.WriteByte(b)
	}
}
