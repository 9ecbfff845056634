package httpx

import (
	"bytes"
	"errors"
)

// Parse errors.
var (
	// ErrIncomplete means more bytes are needed before a request can be
	// parsed. The caller should read more data and retry.
	ErrIncomplete = errors.New("httpx: incomplete request")

	ErrInvalidMethod  = errors.New("httpx: invalid method")
	ErrInvalidPath    = errors.New("httpx: invalid path")
	ErrInvalidVersion = errors.New("httpx: invalid version")
	ErrInvalidHeader  = errors.New("httpx: invalid header")
	ErrTooManyHeaders = errors.New("httpx: too many headers")
)

// MaxHeaders bounds the number of headers a single request may carry.
const MaxHeaders = 64

// Header is a single parsed header. Name and Value are subslices of the
// buffer passed to Parse.
type Header struct {
	Name  []byte
	Value []byte
}

// Request is a parsed HTTP/1.1 request. Every byte slice aliases the
// buffer passed to Parse and is valid only until the next read on the
// same connection.
type Request struct {
	Method  []byte
	Path    []byte
	Query   []byte
	Version []byte
	Headers []Header
	Body    []byte

	headerStorage [MaxHeaders]Header
}

// HeaderValue returns the value of the named header, matched
// case-insensitively, or nil if absent.
func (r *Request) HeaderValue(name string) []byte {
	for i := range r.Headers {
		if equalFold(r.Headers[i].Name, name) {
			return r.Headers[i].Value
		}
	}
	return nil
}

// methods are indexed by length so a candidate is compared against at most
// two strings.
var methodsByLen = [8][]string{
	0: nil,
	3: {"GET", "PUT"},
	4: {"HEAD", "POST"},
	5: {"TRACE", "PATCH"},
	6: {"DELETE"},
	7: {"CONNECT", "OPTIONS"},
}

// Parse parses a single pipelined request from buf into req.
// All returned slices alias buf.
func Parse(buf []byte, req *Request) error {
	// Method
	sp := bytes.IndexByte(buf, ' ')
	if sp < 0 {
		if len(buf) > 8 {
			return ErrInvalidMethod
		}
		return ErrIncomplete
	}
	method := buf[:sp]
	if !validMethod(method) {
		return ErrInvalidMethod
	}
	pos := sp + 1

	// Path, optionally followed by a query.
	rest := buf[pos:]
	end := indexDelim(rest)
	if end < 0 {
		return ErrIncomplete
	}
	if end == 0 {
		return ErrInvalidPath
	}
	path := rest[:end]
	var query []byte
	if rest[end] == '?' {
		qrest := rest[end+1:]
		qend := bytes.IndexByte(qrest, ' ')
		if qend < 0 {
			return ErrIncomplete
		}
		query = qrest[:qend]
		pos += end + 1 + qend + 1
	} else {
		pos += end + 1
	}
	if path[0] != '/' && !bytes.Equal(path, []byte("*")) {
		return ErrInvalidPath
	}

	// Version
	lineEnd := bytes.Index(buf[pos:], []byte("\r\n"))
	if lineEnd < 0 {
		if len(buf)-pos > len("HTTP/1.1") {
			return ErrInvalidVersion
		}
		return ErrIncomplete
	}
	version := buf[pos : pos+lineEnd]
	if !bytes.Equal(version, []byte("HTTP/1.1")) && !bytes.Equal(version, []byte("HTTP/1.0")) {
		return ErrInvalidVersion
	}
	pos += lineEnd + 2

	// Headers
	req.Headers = req.headerStorage[:0]
	for {
		if pos >= len(buf) {
			return ErrIncomplete
		}
		if buf[pos] == '\r' {
			if pos+1 >= len(buf) {
				return ErrIncomplete
			}
			if buf[pos+1] != '\n' {
				return ErrInvalidHeader
			}
			pos += 2
			break
		}

		line := buf[pos:]
		cr := bytes.IndexByte(line, '\r')
		if cr < 0 {
			return ErrIncomplete
		}
		if cr+1 >= len(line) {
			return ErrIncomplete
		}
		if line[cr+1] != '\n' {
			return ErrInvalidHeader
		}
		colon := bytes.IndexByte(line[:cr], ':')
		if colon <= 0 {
			return ErrInvalidHeader
		}
		if len(req.Headers) == MaxHeaders {
			return ErrTooManyHeaders
		}
		req.Headers = append(req.Headers, Header{
			Name:  trimWS(line[:colon]),
			Value: trimWS(line[colon+1 : cr]),
		})
		pos += cr + 2
	}

	req.Method = method
	req.Path = path
	req.Query = query
	req.Version = version
	req.Body = buf[pos:]
	return nil
}

func validMethod(m []byte) bool {
	if len(m) >= len(methodsByLen) {
		return false
	}
	for _, cand := range methodsByLen[len(m)] {
		if string(m) == cand {
			return true
		}
	}
	return false
}

// indexDelim finds the first space or '?' in b, or -1.
func indexDelim(b []byte) int {
	for i, c := range b {
		if c == ' ' || c == '?' {
			return i
		}
	}
	return -1
}

// trimWS trims leading and trailing spaces and horizontal tabs.
func trimWS(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t') {
		end--
	}
	return b[start:end]
}

// equalFold compares an ASCII byte slice against a string
// case-insensitively without allocating.
func equalFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		cb, cs := b[i], s[i]
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if 'A' <= cs && cs <= 'Z' {
			cs += 'a' - 'A'
		}
		if cb != cs {
			return false
		}
	}
	return true
}
